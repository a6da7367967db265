// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command rgplan loads a render graph description, schedules it and prints
// the resulting command stream.
//
// Usage:
//
//	rgplan -file frame.hcl [-var size=256] [-metrics] [-v]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/zclconf/go-cty/cty"

	"github.com/gogpu/rendergraph"
	"github.com/gogpu/rendergraph/graphfile"
)

// varFlags collects repeated -var name=value flags.
type varFlags []string

func (v *varFlags) String() string     { return strings.Join(*v, ",") }
func (v *varFlags) Set(s string) error { *v = append(*v, s); return nil }

func main() {
	var (
		file    = flag.String("file", "", "graph description (HCL)")
		metrics = flag.Bool("metrics", false, "print Prometheus metrics after the flush")
		verbose = flag.Bool("v", false, "enable debug logging")
		vars    varFlags
	)
	flag.Var(&vars, "var", "override a variable as name=value (repeatable)")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		rendergraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if err := run(context.Background(), os.Stdout, *file, vars, *metrics); err != nil {
		log.Fatalf("rgplan: %v", err)
	}
}

func run(ctx context.Context, w io.Writer, path string, vars []string, dumpMetrics bool) error {
	opts, err := parseVars(vars)
	if err != nil {
		return err
	}
	doc, err := graphfile.Load(ctx, path, opts...)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m, err := rendergraph.NewMetrics(reg)
	if err != nil {
		return err
	}
	g, err := doc.Build(rendergraph.WithMetrics(m))
	if err != nil {
		return err
	}

	sink := rendergraph.NewLogSink()
	if err := g.Flush(sink); err != nil {
		return err
	}
	if _, err := io.WriteString(w, sink.String()); err != nil {
		return err
	}
	st := g.LastFlush()
	fmt.Fprintf(w, "%d nodes, %d barrier commands, %d barriers\n", st.Nodes, st.BarrierCommands, st.Barriers)

	if dumpMetrics {
		return writeMetrics(w, reg)
	}
	return nil
}

func parseVars(vars []string) ([]graphfile.ParseOption, error) {
	opts := make([]graphfile.ParseOption, 0, len(vars))
	for _, kv := range vars {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid -var %q: want name=value", kv)
		}
		v, err := cty.ParseNumberVal(value)
		if err != nil {
			v = cty.StringVal(value)
		}
		opts = append(opts, graphfile.WithVariable(name, v))
	}
	return opts, nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
