package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/diogocs32/penareia-bridge/internal/daemonerr"
)

// Logger is the subset of logging the adapter needs.
type Logger interface {
	Warn(msg string, args ...any)
}

const transcodeTimeout = 60 * time.Second

// Adapter runs the external encoder against a Profile.
type Adapter struct {
	profile Profile
	log     Logger
}

// New constructs an Adapter bound to profile.
func New(profile Profile, log Logger) *Adapter {
	return &Adapter{profile: profile, log: log}
}

// Transcode encodes rawPath (raw rgb24 samples at width x height x fps) into
// finalPath. The primary strategy is tried first; on failure the fallback is
// tried. Output is written to a temp path beside finalPath and renamed only
// on success, so a failed attempt leaves no partial file in the final path.
func (a *Adapter) Transcode(rawPath, finalPath string, width, height, fps int) error {
	ctx, cancel := context.WithTimeout(context.Background(), transcodeTimeout)
	defer cancel()

	tempOut := finalPath + ".tmp"
	defer os.Remove(tempOut)

	primaryArgs := newArgBuilder().build(a.profile, rawPath, tempOut, width, height, fps)
	ok, primaryDetail := a.run(ctx, primaryArgs)
	if ok {
		return a.commit(tempOut, finalPath)
	}

	fallbackArgs := buildFallbackArgs(a.profile, rawPath, tempOut, width, height, fps)
	ok, fallbackDetail := a.run(ctx, fallbackArgs)
	if ok {
		return a.commit(tempOut, finalPath)
	}

	return &daemonerr.TranscodeFailedError{
		PrimaryDetail:  primaryDetail,
		FallbackDetail: fallbackDetail,
	}
}

func (a *Adapter) commit(tempOut, finalPath string) error {
	if err := os.Rename(tempOut, finalPath); err != nil {
		return &daemonerr.TranscodeFailedError{Err: fmt.Errorf("rename transcoded output: %w", err)}
	}
	return nil
}

// run executes ffmpeg with args, returning (ok, detail) per the spec's
// synchronous strategy contract. stderr is captured and logged at warn on
// non-zero exit so operators can see the encoder's own diagnostics.
func (a *Adapter) run(ctx context.Context, args []string) (ok bool, detail string) {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		a.log.Warn("encoder invocation failed", "err", err, "output", string(out))
		return false, string(out)
	}
	return true, ""
}

// argBuilder constructs the primary strategy's argument list explicitly,
// field by field, rather than through string concatenation.
type argBuilder struct {
	args []string
}

func newArgBuilder() *argBuilder {
	return &argBuilder{args: []string{"-hide_banner", "-loglevel", "warning", "-y"}}
}

func (b *argBuilder) add(flag string, values ...string) *argBuilder {
	b.args = append(b.args, flag)
	b.args = append(b.args, values...)
	return b
}

func (b *argBuilder) build(p Profile, rawPath, outPath string, width, height, fps int) []string {
	b.add("-f", "rawvideo").
		add("-pix_fmt", "rgb24").
		add("-s", fmt.Sprintf("%dx%d", width, height)).
		add("-r", strconv.Itoa(fps)).
		add("-i", rawPath)

	codec := p.VideoCodec
	if p.UseGPU {
		if hw := hardwareEncoderName(p.VideoCodec); hw != "" {
			codec = hw
		}
	}
	b.add("-c:v", codec).
		add("-preset", p.Preset).
		add("-crf", strconv.Itoa(p.CRF)).
		add("-c:a", p.AudioCodec).
		add("-pix_fmt", p.PixelFormat).
		add("-movflags", "faststart")

	if IsARM() {
		if p.Tune != "" {
			b.add("-tune", p.Tune)
		}
		if p.Threads > 0 {
			b.add("-threads", strconv.Itoa(p.Threads))
		}
		b.add("-g", strconv.Itoa(gopFor(fps))).
			add("-sc_threshold", "0").
			add("-profile:v", "baseline").
			add("-level", "3.1")
	}

	b.args = append(b.args, "-f", "mp4", outPath)
	return b.args
}

// buildFallbackArgs constructs an equivalent argument list independently of
// argBuilder, so a bug in the primary builder can't take down both paths.
func buildFallbackArgs(p Profile, rawPath, outPath string, width, height, fps int) []string {
	args := []string{
		"-hide_banner", "-loglevel", "warning", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.Itoa(fps),
		"-i", rawPath,
		"-c:v", p.VideoCodec,
		"-preset", p.Preset,
		"-crf", strconv.Itoa(p.CRF),
		"-c:a", p.AudioCodec,
		"-pix_fmt", p.PixelFormat,
		"-movflags", "faststart",
		"-f", "mp4",
		outPath,
	}
	return args
}

// hardwareEncoderName maps a software codec name to its hardware-accelerated
// counterpart where one exists on this platform, or "" for a software
// fallback when no mapping is known.
func hardwareEncoderName(videoCodec string) string {
	switch videoCodec {
	case "libx264":
		return "h264_v4l2m2m"
	default:
		return ""
	}
}
