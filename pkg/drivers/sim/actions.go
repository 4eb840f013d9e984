package sim

import (
	"context"
	"encoding/json"

	"github.com/roverfleet/roverfleet/pkg/agent"
	"github.com/roverfleet/roverfleet/pkg/api"
)

// RegisterActions binds the simulated driver set to the agent's registry.
// Movement commands take a step count and run through the repeat composite;
// turns and manipulations are single-shot.
func (r *Rig) RegisterActions(reg *agent.Registry) {
	reg.Register(api.CmdForward, agent.Repeat(r.moveAction(func() api.Vec3 { return r.Facing().Unit() })))
	reg.Register(api.CmdBackward, agent.Repeat(r.moveAction(func() api.Vec3 { return r.Facing().Unit().Neg() })))
	reg.Register(api.CmdUp, agent.Repeat(r.moveAction(func() api.Vec3 { return api.Up() })))
	reg.Register(api.CmdDown, agent.Repeat(r.moveAction(func() api.Vec3 { return api.Up().Neg() })))

	reg.RegisterFunc(api.CmdLeft, func(context.Context, json.RawMessage) api.Result {
		r.turn(true)
		return api.Success()
	})
	reg.RegisterFunc(api.CmdRight, func(context.Context, json.RawMessage) api.Result {
		r.turn(false)
		return api.Success()
	})

	// The simulated world offers nothing to break or build against, so the
	// tool actions succeed without side effects.
	for _, name := range []string{api.CmdDig, api.CmdDigUp, api.CmdDigDown,
		api.CmdPlace, api.CmdPlaceUp, api.CmdPlaceDown} {
		reg.RegisterFunc(name, func(context.Context, json.RawMessage) api.Result {
			return api.Success()
		})
	}

	for _, name := range []string{api.CmdDropFront, api.CmdDropUp, api.CmdDropDown} {
		reg.Register(name, agent.ActionFunc(r.dropAction))
	}
	for _, name := range []string{api.CmdTakeFront, api.CmdTakeUp, api.CmdTakeDown} {
		reg.Register(name, agent.ActionFunc(r.takeAction))
	}

	reg.RegisterFunc(api.CmdSelect, func(_ context.Context, arg json.RawMessage) api.Result {
		slot, err := intArg(arg)
		if err != nil {
			return api.Failure()
		}
		return api.FromBool(r.selectSlot(slot))
	})

	reg.RegisterFunc(api.CmdItemInfo, func(_ context.Context, arg json.RawMessage) api.Result {
		if arg != nil {
			slot, err := intArg(arg)
			if err != nil || !r.selectSlot(slot) {
				return api.Failure()
			}
		}
		return api.ItemResult(r.selectedStack())
	})

	reg.RegisterFunc(api.CmdRefuel, func(context.Context, json.RawMessage) api.Result {
		return api.FromBool(r.refuel())
	})
}

// moveAction builds the single-step action the repeat composite wraps.
func (r *Rig) moveAction(delta func() api.Vec3) agent.Action {
	return agent.ActionFunc(func(context.Context, json.RawMessage) api.Result {
		return api.FromBool(r.step(delta()))
	})
}

func (r *Rig) dropAction(_ context.Context, arg json.RawMessage) api.Result {
	count := 1
	if arg != nil {
		n, err := intArg(arg)
		if err != nil {
			return api.Failure()
		}
		count = n
	}
	return api.FromBool(r.dropSelected(count))
}

func (r *Rig) takeAction(_ context.Context, arg json.RawMessage) api.Result {
	count := 1
	if arg != nil {
		n, err := intArg(arg)
		if err != nil {
			return api.Failure()
		}
		count = n
	}
	if count <= 0 {
		return api.Failure()
	}
	r.addStack(api.Stack{Name: "sim:debris", Count: count})
	return api.Success()
}

func intArg(arg json.RawMessage) (int, error) {
	var n int
	err := json.Unmarshal(arg, &n)
	return n, err
}
