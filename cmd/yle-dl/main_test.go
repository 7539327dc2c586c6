package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yourusername/yle-dl-go/internal/domain"
)

const testURL = "http://areena.yle.fi/tv/1234"

func parseFlags(t *testing.T, args ...string) *options {
	t.Helper()

	opts := &options{}
	cmd := &cobra.Command{}
	bindFlags(cmd, opts)
	require.NoError(t, cmd.ParseFlags(args))
	return opts
}

func TestOperation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want domain.Operation
	}{
		{"default", nil, domain.OperationDownload},
		{"pipe", []string{"--pipe"}, domain.OperationPipe},
		{"output to stdout", []string{"-o", "-"}, domain.OperationPipe},
		{"output file", []string{"-o", "clip.flv"}, domain.OperationDownload},
		{"title", []string{"--showtitle", "--pipe"}, domain.OperationPrintTitle},
		{"episode page", []string{"--showepisodepage", "--showtitle"}, domain.OperationPrintPage},
		{"url", []string{"--showurl", "--showtitle", "--pipe"}, domain.OperationPrintURL},
		{"episode page wins", []string{"--showurl", "--showepisodepage", "--showtitle", "--pipe"}, domain.OperationPrintPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, operation(parseFlags(t, tt.args...)))
		})
	}
}

func TestBuildRequest(t *testing.T) {
	config := domain.DefaultConfig()
	opts := parseFlags(t, "-o", "clip.flv", "--resume", "--sublang", "swe", "--maxbitrate", "worst",
		"--hardsubs", "--latestepisode", "--protocol", "hds, rtmp,,")
	applyOverrides(config, opts)

	req := buildRequest(config, opts, testURL, []string{"--live"}, zap.NewNop())

	assert.Equal(t, testURL, req.URL)
	assert.Equal(t, domain.OperationDownload, req.Operation)
	assert.Equal(t, []string{"hds", "rtmp"}, req.Protocols)
	assert.Equal(t, []string{"-o", "clip.flv", "--resume", "--live"}, req.ExtraArgs)
	assert.Equal(t, domain.StreamFilters{
		LatestOnly: true,
		SubLang:    "swe",
		HardSubs:   true,
		MaxBitrate: domain.BitrateWorst,
	}, req.Filters)
}

func TestBuildRequest_InvalidValues(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	config := domain.DefaultConfig()
	opts := parseFlags(t, "--sublang", "english", "--maxbitrate", "fast")
	applyOverrides(config, opts)

	req := buildRequest(config, opts, testURL, nil, zap.New(core))

	assert.Equal(t, domain.DefaultStreamFilters(), req.Filters)
	assert.Empty(t, req.Protocols)
	assert.Empty(t, req.ExtraArgs)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "Unknown subtitle language english, using all", logs.All()[0].Message)
	assert.Equal(t, "Invalid bitrate fast, downloading the best quality", logs.All()[1].Message)
}

func TestBuildRequest_SubtitleLanguages(t *testing.T) {
	for _, sublang := range []string{"fin", "swe", "smi", "all", "none"} {
		t.Run(sublang, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			config := domain.DefaultConfig()
			applyOverrides(config, parseFlags(t, "--sublang", sublang))

			req := buildRequest(config, &options{}, testURL, nil, zap.New(core))

			assert.Equal(t, sublang, req.Filters.SubLang)
			assert.Zero(t, logs.Len())
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	config := domain.DefaultConfig()
	applyOverrides(config, parseFlags(t, "--vfat", "--destdir", "/videos", "--adobehds", "php  /opt/AdobeHDS.php"))

	assert.True(t, config.Download.VFAT)
	assert.Equal(t, "/videos", config.Download.DestDir)
	assert.Equal(t, []string{"php", "/opt/AdobeHDS.php"}, config.Backends.AdobeHDSCommand)
	assert.Equal(t, "rtmpdump", config.Backends.RTMPDumpPath)
}

func TestSplitPassthrough(t *testing.T) {
	positional, passthrough := splitPassthrough([]string{testURL, "--live", "-v"}, 1)
	assert.Equal(t, []string{testURL}, positional)
	assert.Equal(t, []string{"--live", "-v"}, passthrough)

	positional, passthrough = splitPassthrough([]string{testURL}, -1)
	assert.Equal(t, []string{testURL}, positional)
	assert.Nil(t, passthrough)
}

func TestRootCmd_RequiresURL(t *testing.T) {
	var result domain.Result
	cmd := newRootCmd(&result)
	cmd.SetArgs([]string{"--showurl"})
	assert.Error(t, cmd.Execute())
}
