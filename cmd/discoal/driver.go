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

package main

import (
	"sort"

	"github.com/grailbio/base/errors"

	"github.com/discoal-go/discoal/arg"
	"github.com/discoal-go/discoal/argops"
	"github.com/discoal-go/discoal/config"
	"github.com/discoal-go/discoal/scheduler"
	"github.com/discoal-go/discoal/simcontext"
	"github.com/discoal-go/discoal/trajectory"
)

// maxCoalescentTime bounds how far backward in time a replicate runs past
// its last scheduled event, in 2N0 units: a practical ceiling, since every
// realistic demographic history coalesces its sample long before this.
const maxCoalescentTime = 1000.0

// sweepState threads the Braverman-rejection trajectory and sweep/neutral
// mode across RunReplicate's event loop; it is not part of
// simcontext.SimulationContext because it is driver-local bookkeeping, not
// something any ARG operation or scheduler call needs to see.
type sweepState struct {
	sweeping bool
	traj     *trajectory.MappedTrajectory
}

func (s *sweepState) close() error {
	if s.traj == nil {
		return nil
	}
	err := s.traj.Close()
	s.traj = nil
	return err
}

// RunReplicate drives one full replicate of the backward-time process: seed
// leaf lineages, register pending ancient samples, then walk the sorted
// event vector, alternating neutral and sweep phases between consecutive
// events and applying each event's effect, until the sample coalesces to
// its most recent common ancestor or maxCoalescentTime is reached.
func RunReplicate(ctx *simcontext.SimulationContext) error {
	ctx.SeedLeaves()
	for _, ev := range ctx.Params.Events {
		if ev.Type == arg.EventAncientSample {
			ctx.AddPendingAncient(ev.LineageNumber, ev.PopID, ev.Time)
		}
	}

	events := append([]arg.Event(nil), ctx.Params.Events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time < events[j].Time })

	var st sweepState
	defer st.close()

	t := 0.0
	for _, ev := range events {
		if err := advance(ctx, &st, &t, ev.Time); err != nil {
			return err
		}
		if ctx.Registry.Total() == 0 {
			return nil
		}
		if err := applyEvent(ctx, &st, ev); err != nil {
			return err
		}
	}
	return advance(ctx, &st, &t, maxCoalescentTime)
}

// advance runs neutral and sweep phases back to back until boundary is
// reached or the sample fully coalesces, switching phase whenever a sweep
// phase reports its trajectory has run out (stillSweeping == false).
func advance(ctx *simcontext.SimulationContext, st *sweepState, t *float64, boundary float64) error {
	for *t < boundary {
		if ctx.Registry.Total() == 0 {
			return nil
		}
		if st.sweeping {
			next, stillSweeping, err := scheduler.RunSweepPhase(ctx, st.traj, *t, boundary)
			if err != nil {
				return errors.E(err, "discoal: sweep phase")
			}
			*t = next
			if !stillSweeping {
				scheduler.ResetSweepClasses(ctx)
				if err := st.close(); err != nil {
					return errors.E(err, "discoal: close trajectory")
				}
				st.sweeping = false
			}
		} else {
			next, err := scheduler.RunNeutralPhase(ctx, *t, boundary)
			if err != nil {
				return errors.E(err, "discoal: neutral phase")
			}
			*t = next
		}
	}
	return nil
}

// applyEvent dispatches one demographic/sweep event to the corresponding
// C4 ARG operation or context mutation, per the event schema in §3.
func applyEvent(ctx *simcontext.SimulationContext, st *sweepState, ev arg.Event) error {
	switch ev.Type {
	case arg.EventPopSize:
		if ev.PopID >= 0 && ev.PopID < len(ctx.PopnSizeMultiplier) {
			ctx.PopnSizeMultiplier[ev.PopID] = ev.SizeOrRate
		}
	case arg.EventMerge:
		argops.Join(ctx, ev.PopID, ev.PopID2)
	case arg.EventAdmix:
		argops.Admix(ctx, ev.PopID, ev.PopID2, ev.PopID3, ev.AdmixProp)
	case arg.EventAncientSample:
		ctx.ActivateAncientSample(ev.PopID, ev.Time)
	case arg.EventMigRate:
		applyMigRate(ctx, ev)
	case arg.EventSweep:
		return beginSweep(ctx, st, ev)
	}
	return nil
}

// applyMigRate mutates ctx.CurrentMigMat in place: PopID == -1 (the -eM
// sentinel) sets every off-diagonal entry to SizeOrRate uniformly; a
// nonnegative PopID/PopID2 pair (the -em sentinel) sets only that one
// entry, mirroring the same distinction the top-level -M/-m flags make at
// setup time (config/parse.go).
func applyMigRate(ctx *simcontext.SimulationContext, ev arg.Event) {
	if ev.PopID < 0 {
		for i := range ctx.CurrentMigMat {
			for j := range ctx.CurrentMigMat[i] {
				if i != j {
					ctx.CurrentMigMat[i][j] = ev.SizeOrRate
				}
			}
		}
		return
	}
	if ev.PopID < len(ctx.CurrentMigMat) && ev.PopID2 < len(ctx.CurrentMigMat[ev.PopID]) {
		ctx.CurrentMigMat[ev.PopID][ev.PopID2] = ev.SizeOrRate
	}
}

// beginSweep proposes and accepts a forward-time trajectory for the sweep
// epoch starting at ev.Time, partitions population 0 into the B/b sweep
// classes at the trajectory's starting frequency, and switches the driver
// into sweep mode (§4.6, §4.7).
func beginSweep(ctx *simcontext.SimulationContext, st *sweepState, ev arg.Event) error {
	ctx.SweepSite = -1
	if ctx.Params.SweepSite >= 0 {
		ctx.SweepSite = int(ctx.Params.SweepSite * float64(ctx.Params.NSites))
	}

	cfg := trajectory.Config{
		Mode:      byte(ctx.Params.SweepMode),
		Alpha:     ctx.Params.Alpha,
		F0:        ctx.Params.F0,
		H:         0.5,
		DeltaTMod: ctx.Params.DeltaTMod,
		SizeAt:    func(float64) float64 { return ctx.PopnSizeMultiplier[0] },
	}
	gen := trajectory.NewGenerator(cfg, ctx.RNG)
	traj, err := gen.ProposeAndAccept(ctx.Params.EffectivePopnSize)
	if err != nil {
		return errors.E(err, "discoal: propose sweep trajectory")
	}

	freq0, err := traj.At(0)
	if err != nil {
		traj.Close()
		return errors.E(err, "discoal: read initial sweep frequency")
	}

	carriers := scheduler.InitializeSweepClasses(ctx, float64(freq0))
	ctx.SweepCarriers = append(ctx.SweepCarriers, carriers...)

	st.traj = traj
	st.sweeping = true
	return nil
}

// sweepSitePosition returns the fractional position to record the
// selected-site mutation at, or false if the sweep site lies outside the
// simulated region (the -ls/-ld/-ln left-flanking-locus configurations).
func sweepSitePosition(p config.Params) (float64, bool) {
	if p.SweepSite < 0 {
		return 0, false
	}
	return p.SweepSite, true
}
