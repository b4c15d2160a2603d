package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/openfluke/devcompute/compute"
	"github.com/openfluke/devcompute/endian"
	"github.com/openfluke/devcompute/internal/logging"
	"github.com/spf13/cobra"
)

// defaultValues is the buffer the demo converts when --values is not given.
var defaultValues = []uint32{0x3faff7b4, 0x32332323, 0xffccaadd, 0xaaaacccc}

type runFlags struct {
	backend string
	device  int
	threads int
	strict  bool
	values  []string
}

func newRunCommand(opts *options) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the byte swap demo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, opts)
			words, err := parseWords(f.values)
			if err != nil {
				return err
			}
			return runDemo(cmd.OutOrStdout(), f, words)
		},
	}
	cmd.Flags().StringVar(&f.backend, "backend", "", "compute backend (host, webgpu)")
	cmd.Flags().IntVar(&f.device, "device", 0, "device index on the backend")
	cmd.Flags().IntVar(&f.threads, "threads", 0, "threads per block")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail when threads do not divide the element count")
	cmd.Flags().StringSliceVar(&f.values, "values", nil, "comma separated hex words to convert")
	return cmd
}

// apply fills unset flags from the loaded configuration.
func (f *runFlags) apply(cmd *cobra.Command, opts *options) {
	cfg := opts.cfg
	if cfg == nil {
		return
	}
	if !cmd.Flags().Changed("backend") {
		f.backend = cfg.Backend
	}
	if !cmd.Flags().Changed("device") {
		f.device = cfg.Device
	}
	if !cmd.Flags().Changed("threads") {
		f.threads = cfg.Launch.Threads
	}
	if !cmd.Flags().Changed("strict") {
		f.strict = cfg.Launch.Strict
	}
}

func parseWords(values []string) ([]uint32, error) {
	if len(values) == 0 {
		return append([]uint32(nil), defaultValues...), nil
	}
	words := make([]uint32, 0, len(values))
	for _, s := range values {
		s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid word %q: %w", s, err)
		}
		words = append(words, uint32(v))
	}
	return words, nil
}

func runDemo(w io.Writer, f *runFlags, words []uint32) error {
	log := logging.Component("demo")

	ctx, err := compute.OpenContext(f.backend, f.device)
	if err != nil {
		log.Errorf("open context: %v", err)
		return err
	}
	defer ctx.Release()

	buf, err := compute.NewBuffer(4, len(words))
	if err != nil {
		return err
	}
	defer buf.Release()

	host, err := buf.Map(ctx, compute.MapHostTarget)
	if err != nil {
		return err
	}
	if err := endian.PutWords32(host, words); err != nil {
		return err
	}

	opts := []endian.Option{endian.WithThreads(f.threads)}
	if f.strict {
		opts = append(opts, endian.WithStrictGeometry())
	}
	swap, err := endian.NewSwapModule(buf, opts...)
	if err != nil {
		return err
	}

	comp := compute.NewComputation(ctx)
	comp.AddModule(swap)
	if err := comp.Init(); err != nil {
		log.Errorf("init: %v", err)
		return err
	}

	log.Infof("before conversion: %s", formatWords(words))
	fmt.Fprintf(w, "before: %s\n", formatWords(words))

	if err := comp.Launch(); err != nil {
		log.Errorf("launch: %v", err)
		return err
	}

	out, err := buf.Map(ctx, compute.MapHostSource)
	if err != nil {
		return err
	}
	swapped := endian.Words32(out)
	log.Infof("after conversion: %s (%s on %s)", formatWords(swapped), swap.Geometry(), ctx.Backend())
	fmt.Fprintf(w, "after:  %s\n", formatWords(swapped))

	comp.Clear()
	return nil
}

func formatWords(words []uint32) string {
	parts := make([]string, len(words))
	for i, v := range words {
		parts[i] = fmt.Sprintf("%08x", v)
	}
	return strings.Join(parts, " ")
}
