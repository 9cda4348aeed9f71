package nexus

import (
	"context"

	"github.com/availproject/nexus-sdk-sub001/internal/cerrs"
	"github.com/availproject/nexus-sdk-sub001/internal/intent"
	"github.com/availproject/nexus-sdk-sub001/internal/permit"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
	"github.com/availproject/nexus-sdk-sub001/internal/steps"
)

// Hooks gate the interactive decision points of an execution. All hooks are
// optional; a nil hook accepts with defaults.
type Hooks struct {
	// OnIntent is shown the built intent before anything runs. Returning
	// false declines the execution.
	OnIntent func(ctx context.Context, in *intent.Intent) (bool, error)
	// OnAllowance picks allowance sizes for the flagged sources. A nil hook
	// grants the minimum everywhere.
	OnAllowance func(ctx context.Context, reqs []permit.Requirement) ([]permit.Choice, error)
	// OnStep observes execution milestones.
	OnStep steps.Observer
}

// Result is the outcome of one executed settlement.
type Result struct {
	Intent      *intent.Intent
	RequestHash string
	ExplorerURL string
	// Confirmed reports whether the destination vault confirmed fulfillment
	// within the wait window. False is not a failure; the relay remains the
	// source of truth.
	Confirmed bool
	// FulfillTx is the destination fulfillment transaction, when observed.
	FulfillTx string
}

// Execute runs the full settlement flow: build, accept gate, allowances,
// sign and submit, native deposits, fulfillment wait.
func (s *SDK) Execute(ctx context.Context, req intent.BuildRequest, hooks Hooks) (*Result, error) {
	in, err := s.Simulate(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.ExecuteIntent(ctx, in, hooks)
}

// ExecuteIntent executes a previously simulated intent. Insufficient intents
// are refused here, before any allowance or submission step.
func (s *SDK) ExecuteIntent(ctx context.Context, in *intent.Intent, hooks Hooks) (*Result, error) {
	if in.InsufficientBalance {
		return nil, cerrs.New(cerrs.CodeInsufficientBalance,
			"eligible sources do not cover the requested amount plus fees")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if hooks.OnIntent != nil {
		ok, err := hooks.OnIntent(ctx, in)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, cerrs.New(cerrs.CodeUserDeclined, "intent declined")
		}
	}
	in.Accept()

	reqs, err := s.permits.Requirements(ctx, in)
	if err != nil {
		return nil, err
	}
	var needed []permit.Requirement
	for _, r := range reqs {
		if r.Needed() {
			needed = append(needed, r)
		}
	}

	ledger := steps.New(s.expectedSteps(in, needed), hooks.OnStep)
	ledger.Complete(steps.IntentAccepted)

	if len(needed) > 0 {
		choices, err := s.allowanceChoices(ctx, needed, hooks)
		if err != nil {
			return nil, err
		}
		if err := s.permits.Run(ctx, in, needed, choices, ledger); err != nil {
			return nil, err
		}
	}

	sub, err := s.protocol.Submit(ctx, in, ledger)
	if err != nil {
		return nil, err
	}
	if err := s.protocol.Deposits(ctx, in, sub, ledger); err != nil {
		return nil, err
	}

	conf, err := s.protocol.WaitFulfillment(ctx, in, sub, s.fulfillTimeout, ledger)
	if err != nil {
		return nil, err
	}

	return &Result{
		Intent:      in,
		RequestHash: sub.RequestHash,
		ExplorerURL: sub.ExplorerURL,
		Confirmed:   conf.Confirmed,
		FulfillTx:   conf.TxHash,
	}, nil
}

func (s *SDK) allowanceChoices(ctx context.Context, needed []permit.Requirement, hooks Hooks) ([]permit.Choice, error) {
	if hooks.OnAllowance == nil {
		choices := make([]permit.Choice, len(needed))
		for i := range choices {
			choices[i] = permit.Choice{Kind: permit.ChoiceMin}
		}
		return choices, nil
	}
	choices, err := hooks.OnAllowance(ctx, needed)
	if err != nil {
		return nil, err
	}
	if choices == nil {
		return nil, cerrs.New(cerrs.CodeUserDeclined, "allowances declined")
	}
	return choices, nil
}

// expectedSteps derives the milestone list from the intent shape and the
// flagged allowance requirements.
func (s *SDK) expectedSteps(in *intent.Intent, needed []permit.Requirement) []string {
	expected := []string{steps.IntentAccepted}
	for _, req := range needed {
		switch req.Variant {
		case registry.PermitEIP2612, registry.PermitDAI:
			expected = append(expected, steps.PermitStep(req.NetworkID))
		default:
			expected = append(expected, steps.ApprovalStep(req.NetworkID))
		}
	}
	expected = append(expected, steps.RequestSigned, steps.RequestSubmitted)
	for _, src := range in.Sources {
		if src.Native {
			expected = append(expected, steps.DepositStep(src.NetworkID))
		}
	}
	for _, src := range in.Sources {
		if !src.Native {
			expected = append(expected, steps.CollectionStep(src.NetworkID))
		}
	}
	return append(expected, steps.IntentFulfilled)
}
