package domain

// Result is the outcome of an operation. The numeric values double as the
// process exit code and match the exit codes of rtmpdump.
type Result int

const (
	ResultSuccess    Result = 0
	ResultFailed     Result = 1
	ResultIncomplete Result = 2
)

// String returns a human readable representation of the result
func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFailed:
		return "failed"
	case ResultIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// ResultFromExitCode maps an external downloader exit code to a Result.
// Any code other than 0 and 2 is a failure.
func ResultFromExitCode(code int) Result {
	switch code {
	case 0:
		return ResultSuccess
	case 2:
		return ResultIncomplete
	default:
		return ResultFailed
	}
}
