// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
discoal simulates backward-time coalescent genealogies under recombination,
gene conversion, selective sweeps, demographic change, and ancient sampling,
then lays down neutral mutations and emits either the legacy ms-style
genotype text format or a tree-sequence-shaped table collection.

Sample usage:

	discoal 10 5 1000 -t 5 -r 2 > out.msout
	discoal 10 5 1000 -t 5 -a 500 -x 0.5 -N 100000 -ts out.ts
	discoal -config run.yaml
*/
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/vcontext"
	"golang.org/x/sync/errgroup"

	"github.com/discoal-go/discoal/arg"
	"github.com/discoal-go/discoal/config"
	"github.com/discoal-go/discoal/genotype"
	"github.com/discoal-go/discoal/mutation"
	"github.com/discoal-go/discoal/simcontext"
	"github.com/discoal-go/discoal/tskit"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s sampleSize numReplicates nSites [options]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "       %s -config run.yaml\n", os.Args[0])
}

func main() {
	shutdown := grail.Init()
	defer shutdown()

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		log.Fatalf("discoal: missing arguments")
	}

	p, err := loadParams(args)
	if err != nil {
		usage()
		log.Fatalf("discoal: %v", err)
	}
	if p.Seed1 == 0 && p.Seed2 == 0 {
		p.Seed1, p.Seed2 = uint64(time.Now().UnixNano()), uint64(os.Getpid())
	}

	ctx := vcontext.Background()
	ctx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// eg races the replicate loop against the signal watcher, the same
	// shape fusion_e2e_test.go uses to race a long-running operation
	// against its own cleanup goroutine: whichever finishes first, Wait
	// returns once both have.
	var eg errgroup.Group
	eg.Go(func() error {
		select {
		case _, ok := <-sigCh:
			if ok {
				log.Printf("discoal: interrupted, finishing in-flight replicates")
				cancel()
			}
		case <-ctx.Done():
		}
		return nil
	})
	eg.Go(func() error {
		defer cancel()
		return runAllReplicates(ctx, p, args)
	})
	if err := eg.Wait(); err != nil {
		log.Fatalf("discoal: %v", err)
	}
}

// loadParams resolves Params from either the legacy positional+flag
// grammar or, when invoked as "-config path.yaml", a YAML configuration.
func loadParams(args []string) (config.Params, error) {
	if len(args) == 2 && args[0] == "-config" {
		return config.LoadYAML(args[1])
	}
	return config.Parse(args)
}

// runAllReplicates runs p.NumReplicates independent replicates in parallel
// (bounded by runtime.NumCPU via traverse.Each's default); a canceled
// context (signal-driven shutdown, §5) skips any replicate not yet started
// rather than aborting one in flight. Tree-sequence output (-ts) is
// persisted per replicate as soon as it is ready, since each goes to its
// own file; the legacy genotype format instead buffers per replicate and is
// flushed to stdout afterward in replicate order, since that format is a
// single concatenated stream and concurrent writers would interleave it.
func runAllReplicates(ctx context.Context, p config.Params, rawArgs []string) error {
	commandLine := commandLineString(rawArgs, p)
	var canceled int32
	genotypeBufs := make([][]byte, p.NumReplicates)

	err := traverse.Each(p.NumReplicates, func(i int) error {
		if atomic.LoadInt32(&canceled) != 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			atomic.StoreInt32(&canceled, 1)
			return nil
		default:
		}

		seed1, seed2 := p.Seed1+uint64(i)*2, p.Seed2+uint64(i)*3
		sctx := simcontext.New(p, seed1, seed2)
		if err := RunReplicate(sctx); err != nil {
			return errors.E(err, "discoal: replicate", i)
		}

		nm, err := sctx.Recorder.Simplify()
		if err != nil {
			return errors.E(err, "discoal: simplify", i)
		}

		// SweepCarriers holds recorder node ids assigned before
		// simplification; remap them through nm so the selected-site
		// mutation lands on the post-simplification id, dropping any
		// carrier Simplify determined was not reachable from a sample.
		pos, ok := sweepSitePosition(p)
		var carriers []arg.NodeID
		if ok {
			for _, c := range sctx.SweepCarriers {
				if int(c) < 0 || int(c) >= len(nm) {
					continue
				}
				if newID := nm[c]; newID != arg.NoNode {
					carriers = append(carriers, newID)
				}
			}
		} else {
			pos = -1
		}
		if err := mutation.PlaceMutations(sctx.RNG, sctx.Recorder, p.Theta, p.NSites, pos, carriers); err != nil {
			return errors.E(err, "discoal: place mutations", i)
		}

		if p.TSOutputPath != "" {
			return tskit.Persist(ctx, sctx.Recorder, p.TSOutputPath, i, p.NumReplicates)
		}
		var buf bytes.Buffer
		if err := genotype.Write(&buf, sctx.Recorder, commandLine, seed1, seed2); err != nil {
			return errors.E(err, "discoal: format genotype output", i)
		}
		genotypeBufs[i] = buf.Bytes()
		return nil
	})
	if err != nil {
		return err
	}
	if p.TSOutputPath != "" {
		return nil
	}
	for _, buf := range genotypeBufs {
		if buf == nil {
			continue
		}
		if _, err := os.Stdout.Write(buf); err != nil {
			return errors.E(err, "discoal: write genotype output")
		}
	}
	return nil
}

func commandLineString(rawArgs []string, p config.Params) string {
	s := "discoal " + strconv.Itoa(p.SampleSize) + " " + strconv.Itoa(p.NumReplicates) + " " + strconv.Itoa(p.NSites)
	for _, a := range rawArgs[minInt(3, len(rawArgs)):] {
		s += " " + a
	}
	return s
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
