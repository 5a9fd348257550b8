// Package processor runs one call end to end: decode, validate accounts,
// validate the transfer plan, then execute through collaborators. Nothing
// moves before every validation has passed.
package processor

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/OpenAudio/solana-programs/internal/account"
	"github.com/OpenAudio/solana-programs/internal/config"
	"github.com/OpenAudio/solana-programs/internal/instruction"
	"github.com/OpenAudio/solana-programs/internal/orchestrator"
	"github.com/OpenAudio/solana-programs/internal/plan"
	"github.com/OpenAudio/solana-programs/pkg/log"
)

var (
	ErrUnknownProgram       = errors.New("unknown program")
	ErrBridgeTargetMismatch = errors.New("bridge target mismatch")
)

type Option func(*Processor)

func WithLogger(l zerolog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

type Processor struct {
	cfg      config.Config
	programs map[solana.PublicKey]program
	logger   zerolog.Logger
}

// program is one of our programs and the tables of the selectors it serves.
type program struct {
	name   string
	id     solana.PublicKey
	tables map[string]account.Table
}

// New builds the validation tables of both programs from cfg.
func New(cfg config.Config, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	routerInit, err := initTable(instruction.CreatePaymentRouterBalance, cfg.PaymentRouter, cfg)
	if err != nil {
		return nil, err
	}
	route, err := routeTable(cfg)
	if err != nil {
		return nil, err
	}
	bridgeInit, err := initTable(instruction.CreateStakingBridgeBalance, cfg.StakingBridge, cfg)
	if err != nil {
		return nil, err
	}
	swap, err := swapTable(cfg)
	if err != nil {
		return nil, err
	}
	bridge, err := bridgeTable(cfg)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		cfg: cfg,
		programs: map[solana.PublicKey]program{
			cfg.PaymentRouter.ID: {
				name: cfg.PaymentRouter.Namespace,
				id:   cfg.PaymentRouter.ID,
				tables: map[string]account.Table{
					routerInit.Name: routerInit,
					route.Name:      route,
				},
			},
			cfg.StakingBridge.ID: {
				name: cfg.StakingBridge.Namespace,
				id:   cfg.StakingBridge.ID,
				tables: map[string]account.Table{
					bridgeInit.Name: bridgeInit,
					swap.Name:       swap,
					bridge.Name:     bridge,
				},
			},
		},
		logger: log.Processor,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Table returns the rule table a program applies to the named selector.
func (p *Processor) Table(programID solana.PublicKey, name string) (account.Table, bool) {
	prog, ok := p.programs[programID]
	if !ok {
		return account.Table{}, false
	}
	t, ok := prog.tables[name]
	return t, ok
}

// Process runs call against ports. It returns nil only when every
// collaborator call succeeded; any error means the call must be discarded.
func (p *Processor) Process(call instruction.Call, ports orchestrator.Ports) (err error) {
	prog, ok := p.programs[call.Program]
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownProgram, call.Program)
		p.logger.Warn().Err(err).Msg("call rejected")
		return err
	}

	operation := "unknown"
	defer func() {
		ev := p.logger.Info()
		if err != nil {
			ev = p.logger.Warn().Err(err)
		}
		ev.Str("program", prog.name).Str("operation", operation).Bool("committed", err == nil).Msg("call processed")
	}()

	in, err := instruction.Decode(call)
	if err != nil {
		return err
	}
	operation = in.Layout.Kind.String()
	table, ok := prog.tables[in.Layout.Name]
	if !ok {
		return fmt.Errorf("%w: %s is not served by %s", instruction.ErrUnknownInstruction, in.Layout.Name, prog.name)
	}

	inputs := account.Inputs{Bumps: in.Bumps()}
	if in.Swap != nil {
		inputs.Seeds = map[string][]byte{
			VaultNonceSeed: binary.LittleEndian.AppendUint64(nil, in.Swap.VaultNonce),
		}
	}
	ctx, err := account.Validate(table, in.Accounts, inputs)
	if err != nil {
		return err
	}

	switch in.Layout.Kind {
	case instruction.KindInitBalance:
		return ports.InitBalance(ctx, prog.id)
	case instruction.KindRoute:
		args := in.Route
		if err := plan.Validate(args.Amounts, args.Total, len(in.Remaining), plan.Policy{}); err != nil {
			return err
		}
		return ports.RoutePayment(ctx, in.Remaining, args.Amounts)
	case instruction.KindSwap:
		return ports.ExecuteSwap(ctx, *in.Swap)
	case instruction.KindBridge:
		args := in.Bridge
		if err := plan.ValidateFee(args.Amount, args.Fee); err != nil {
			return err
		}
		if err := p.checkBridgeTarget(*args); err != nil {
			return err
		}
		return ports.BridgeDeposit(ctx, *args)
	default:
		return fmt.Errorf("%w: %s", instruction.ErrUnknownInstruction, in.Layout.Name)
	}
}

// checkBridgeTarget pins deposits to the configured relay: the balance is
// shared and anyone may trigger a deposit.
func (p *Processor) checkBridgeTarget(args instruction.BridgeArgs) error {
	route := p.cfg.Bridge
	if args.TargetChain != route.TargetChain {
		return fmt.Errorf("%w: chain %d, want %d", ErrBridgeTargetMismatch, args.TargetChain, route.TargetChain)
	}
	if args.TargetAddress != route.TargetAddress {
		return fmt.Errorf("%w: address %x", ErrBridgeTargetMismatch, args.TargetAddress)
	}
	return nil
}
