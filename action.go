package nexus

import (
	"context"
	"math/big"
	"strings"

	"github.com/availproject/nexus-sdk-sub001/internal/intent"
	"github.com/availproject/nexus-sdk-sub001/internal/optimizer"
)

// Action re-exports the destination-chain call description.
type Action = optimizer.Action

// ActionResult is the outcome of an action with its optional movement leg.
type ActionResult struct {
	// Settlement is nil when the destination was already funded and the
	// movement leg was skipped.
	Settlement *Result
	ActionTx   string
}

// BridgeAndExecute funds the action's network from the unified balance, then
// runs the action. When the destination already holds enough token and gas
// the movement leg is skipped and only the action runs.
func (s *SDK) BridgeAndExecute(ctx context.Context, action Action, hooks Hooks) (*ActionResult, error) {
	return s.fundAndExecute(ctx, action, hooks)
}

// SwapAndExecute is BridgeAndExecute for actions whose calldata performs a
// swap on arrival: the movement leg delivers the action's input token, the
// action converts it.
func (s *SDK) SwapAndExecute(ctx context.Context, action Action, hooks Hooks) (*ActionResult, error) {
	return s.fundAndExecute(ctx, action, hooks)
}

// ExecuteOnly runs the action with no movement leg, whatever the destination
// balances look like.
func (s *SDK) ExecuteOnly(ctx context.Context, action Action) (*ActionResult, error) {
	if err := s.conn.Revalidate(ctx); err != nil {
		return nil, err
	}
	est, err := s.actions.Estimate(ctx, action)
	if err != nil {
		return nil, err
	}
	txHash, err := s.actions.Execute(ctx, action, est)
	if err != nil {
		return nil, err
	}
	return &ActionResult{ActionTx: txHash}, nil
}

func (s *SDK) fundAndExecute(ctx context.Context, action Action, hooks Hooks) (*ActionResult, error) {
	if err := s.conn.Revalidate(ctx); err != nil {
		return nil, err
	}

	est, err := s.actions.Estimate(ctx, action)
	if err != nil {
		return nil, err
	}
	assets, err := s.GetUnifiedBalances(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := s.actions.Decide(action, assets, est)
	if err != nil {
		return nil, err
	}

	out := &ActionResult{}
	if !plan.SkipBridge {
		net, err := s.reg.Network(action.NetworkID)
		if err != nil {
			return nil, err
		}
		req := intent.BuildRequest{
			NetworkID: action.NetworkID,
			Symbol:    action.TokenSymbol,
			Amount:    new(big.Int).Set(plan.TokenShortfall),
			Recipient: s.conn.Address().Hex(),
		}
		if req.Symbol == "" || strings.EqualFold(req.Symbol, net.NativeSymbol) {
			// Native shortfalls share a unit; move them as one amount.
			req.Symbol = net.NativeSymbol
			req.Amount.Add(req.Amount, plan.GasShortfall)
		} else if plan.GasShortfall.Sign() > 0 {
			req.GasAmount = plan.GasShortfall
			req.GasTokenRate = action.GasTokenRate
		}

		res, err := s.Execute(ctx, req, hooks)
		if err != nil {
			return nil, err
		}
		out.Settlement = res

		// The movement may re-decide on re-invocation; the estimate is not
		// re-priced here.
	}

	txHash, err := s.actions.Execute(ctx, action, est)
	if err != nil {
		return nil, err
	}
	out.ActionTx = txHash
	return out, nil
}
