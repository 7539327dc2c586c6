package backend

import (
	"context"

	"github.com/yourusername/yle-dl-go/internal/domain"
)

// cookieFile is left in the working directory by AdobeHDS.php --play
const cookieFile = "Cookies.txt"

// AdobeHDS saves HDS streams with AdobeHDS.php
type AdobeHDS struct {
	base
	manifest       string
	qualityOptions []string
}

// NewAdobeHDS creates an AdobeHDS.php backend
func NewAdobeHDS(manifest, title string, maxBitrate int, opts Options) *AdobeHDS {
	return &AdobeHDS{
		base:           newBase(title, opts, false),
		manifest:       manifest,
		qualityOptions: bitrateToQuality(maxBitrate),
	}
}

// bitrateToQuality approximates a bitrate limit with the script's quality
// levels because the available bitrates are not known up front.
func bitrateToQuality(maxBitrate int) []string {
	switch {
	case maxBitrate < 1000:
		return []string{"--quality", "low"}
	case maxBitrate < 2000:
		return []string{"--quality", "medium"}
	default:
		return nil
	}
}

// OutputFilename returns the --outfile of the script
func (d *AdobeHDS) OutputFilename() string {
	return d.defaultOutputFilename(".flv", false)
}

func (d *AdobeHDS) buildArgs() []string {
	args := append([]string{}, d.opts.AdobeHDSCommand...)
	args = append(args, "--manifest", d.manifest, "--delete", "--outfile", d.OutputFilename())
	args = append(args, d.qualityOptions...)
	if d.opts.Debug {
		args = append(args, "--debug")
	}
	return args
}

// Save runs the script into the output file
func (d *AdobeHDS) Save(ctx context.Context) domain.Result {
	args := d.buildArgs()
	return d.saveExternal(ctx, args, outfileFromArgs(args))
}

// Pipe plays the stream to stdout and removes the cookie jar afterwards
func (d *AdobeHDS) Pipe(ctx context.Context) domain.Result {
	args := append([]string{}, d.opts.AdobeHDSCommand...)
	args = append(args, "--manifest", d.manifest)
	args = append(args, d.qualityOptions...)
	args = append(args, "--play")
	if d.opts.Debug {
		args = append(args, "--debug")
	}

	result := d.runner().Run(ctx, args)
	d.cleanupCookies()
	return result
}

func (d *AdobeHDS) cleanupCookies() {
	_ = d.opts.Fs.Remove(cookieFile)
}

func outfileFromArgs(args []string) string {
	for i, a := range args {
		if a == "--outfile" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
