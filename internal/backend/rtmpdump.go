package backend

import (
	"context"

	"github.com/yourusername/yle-dl-go/internal/domain"
)

// RTMPDump saves RTMP streams with rtmpdump
type RTMPDump struct {
	base
	streamArgs []string
}

// NewRTMPDump creates an rtmpdump backend for the given connection options
func NewRTMPDump(streamArgs []string, title string, opts Options) *RTMPDump {
	return &RTMPDump{
		base:       newBase(title, opts, true),
		streamArgs: streamArgs,
	}
}

// OutputFilename returns the file rtmpdump writes. A resumed download
// reuses the existing name.
func (d *RTMPDump) OutputFilename() string {
	return d.defaultOutputFilename(".flv", IsResumeJob(d.opts.ExtraArgs))
}

func (d *RTMPDump) buildArgs() []string {
	args := []string{d.opts.RTMPDumpPath}
	args = append(args, d.streamArgs...)
	if OutputFileFromArgs(d.opts.ExtraArgs) == "" {
		args = append(args, "-o", d.OutputFilename())
	}
	return append(args, d.opts.ExtraArgs...)
}

// Save runs rtmpdump into the output file
func (d *RTMPDump) Save(ctx context.Context) domain.Result {
	args := d.buildArgs()
	return d.saveExternal(ctx, args, OutputFileFromArgs(args))
}

// Pipe runs rtmpdump writing to stdout
func (d *RTMPDump) Pipe(ctx context.Context) domain.Result {
	args := []string{d.opts.RTMPDumpPath}
	args = append(args, d.streamArgs...)
	args = append(args, "-o", "-")
	return d.runner().Run(ctx, args)
}
