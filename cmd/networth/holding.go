package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"networth/internal/application/service"
	"networth/internal/domain/model"
	"networth/internal/interfaces/console"
)

// holdingCmd groups the manual data entry commands.
type holdingCmd struct{}

func (*holdingCmd) Name() string     { return "holding" }
func (*holdingCmd) Synopsis() string { return "add, edit, archive or list holdings" }
func (*holdingCmd) Usage() string {
	return `networth holding <add|edit|archive|list> [flags]

  Manual entry of positions. Edits and archives append a new version of
  the holding; snapshots keep the version they were valued with.
`
}

func (*holdingCmd) SetFlags(*flag.FlagSet) {}

func (*holdingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fs := flag.NewFlagSet("holding", flag.ContinueOnError)
	cmdr := subcommands.NewCommander(fs, "networth holding")
	cmdr.Register(cmdr.HelpCommand(), "")
	cmdr.Register(&holdingAddCmd{}, "")
	cmdr.Register(&holdingEditCmd{}, "")
	cmdr.Register(&holdingArchiveCmd{}, "")
	cmdr.Register(&holdingListCmd{}, "")
	if err := fs.Parse(f.Args()); err != nil {
		return subcommands.ExitUsageError
	}
	return cmdr.Execute(ctx)
}

// holdingFields are the flags shared by add and edit.
type holdingFields struct {
	class, symbol, name, quantity, currency string
	cost, acquired, note                    string
	face, coupon, maturity, issuer          string
	freq                                    int
}

func (h *holdingFields) register(f *flag.FlagSet) {
	f.StringVar(&h.class, "class", "", "asset class (crypto, stock, etf, bond, cash)")
	f.StringVar(&h.symbol, "symbol", "", "ticker or coin symbol; cash defaults to the currency")
	f.StringVar(&h.name, "name", "", "display name")
	f.StringVar(&h.quantity, "qty", "", "units held; for bonds and cash the value")
	f.StringVar(&h.currency, "currency", "", "ISO 4217 currency the holding is denominated in")
	f.StringVar(&h.cost, "cost", "", "acquisition unit cost")
	f.StringVar(&h.acquired, "acquired", "", "acquisition date (YYYY-MM-DD)")
	f.StringVar(&h.note, "note", "", "acquisition note")
	f.StringVar(&h.face, "face", "", "bond face value")
	f.StringVar(&h.coupon, "coupon", "", "bond coupon rate, e.g. 0.068")
	f.IntVar(&h.freq, "freq", 0, "bond coupons per year")
	f.StringVar(&h.maturity, "maturity", "", "bond maturity date (YYYY-MM-DD)")
	f.StringVar(&h.issuer, "issuer", "", "bond issuer")
}

func (h *holdingFields) acquisition() (*model.Acquisition, error) {
	if h.cost == "" && h.acquired == "" && h.note == "" {
		return nil, nil
	}
	a := &model.Acquisition{Note: h.note}
	var err error
	if h.cost != "" {
		if a.UnitCost, err = decimal.NewFromString(h.cost); err != nil {
			return nil, fmt.Errorf("bad -cost: %w", err)
		}
	}
	if h.acquired != "" {
		if a.Date, err = time.Parse(time.DateOnly, h.acquired); err != nil {
			return nil, fmt.Errorf("bad -acquired: %w", err)
		}
	}
	return a, nil
}

func (h *holdingFields) bond() (*model.BondMeta, error) {
	if h.face == "" && h.coupon == "" && h.maturity == "" && h.issuer == "" && h.freq == 0 {
		return nil, nil
	}
	b := &model.BondMeta{CouponFreq: h.freq, Issuer: h.issuer}
	var err error
	if h.face != "" {
		if b.Face, err = decimal.NewFromString(h.face); err != nil {
			return nil, fmt.Errorf("bad -face: %w", err)
		}
	}
	if h.coupon != "" {
		if b.CouponRate, err = decimal.NewFromString(h.coupon); err != nil {
			return nil, fmt.Errorf("bad -coupon: %w", err)
		}
	}
	if h.maturity != "" {
		if b.Maturity, err = time.Parse(time.DateOnly, h.maturity); err != nil {
			return nil, fmt.Errorf("bad -maturity: %w", err)
		}
	}
	return b, nil
}

type holdingAddCmd struct {
	holdingFields
}

func (*holdingAddCmd) Name() string     { return "add" }
func (*holdingAddCmd) Synopsis() string { return "add a new holding" }
func (*holdingAddCmd) Usage() string {
	return `networth holding add -class <class> -symbol <symbol> -qty <n> -currency <code> [flags]
`
}

func (c *holdingAddCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *holdingAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	qty, err := decimal.NewFromString(c.quantity)
	if err != nil {
		return usage(fmt.Errorf("bad -qty %q: %w", c.quantity, err))
	}
	acq, err := c.acquisition()
	if err != nil {
		return usage(err)
	}
	bond, err := c.bond()
	if err != nil {
		return usage(err)
	}

	ctr, err := open(false)
	if err != nil {
		return fail(err)
	}
	defer ctr.Close()

	h, err := ctr.App().HoldingService().Add(ctx, model.Holding{
		AssetClass:  model.AssetClass(c.class),
		Symbol:      c.symbol,
		Name:        c.name,
		Quantity:    qty,
		Currency:    c.currency,
		Acquisition: acq,
		Bond:        bond,
	})
	if err != nil {
		return fail(err)
	}
	fmt.Println(h.ID)
	return subcommands.ExitSuccess
}

type holdingEditCmd struct {
	holdingFields
}

func (*holdingEditCmd) Name() string     { return "edit" }
func (*holdingEditCmd) Synopsis() string { return "append a new version of a holding" }
func (*holdingEditCmd) Usage() string {
	return `networth holding edit [flags] <id>

  Only the flags given change; everything else is carried over.
`
}

func (c *holdingEditCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *holdingEditCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage(errors.New("edit takes exactly one holding id"))
	}
	patch, err := c.patch(f)
	if err != nil {
		return usage(err)
	}

	ctr, err := open(false)
	if err != nil {
		return fail(err)
	}
	defer ctr.Close()

	h, err := ctr.App().HoldingService().Edit(ctx, f.Arg(0), patch)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("%s v%d\n", h.ID, h.Version)
	return subcommands.ExitSuccess
}

// patch keeps only the flags that were set on the command line.
func (c *holdingEditCmd) patch(f *flag.FlagSet) (service.HoldingPatch, error) {
	set := make(map[string]bool)
	f.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	var p service.HoldingPatch
	if set["class"] {
		class := model.AssetClass(c.class)
		p.AssetClass = &class
	}
	if set["symbol"] {
		p.Symbol = &c.symbol
	}
	if set["name"] {
		p.Name = &c.name
	}
	if set["currency"] {
		p.Currency = &c.currency
	}
	if set["qty"] {
		q, err := decimal.NewFromString(c.quantity)
		if err != nil {
			return p, fmt.Errorf("bad -qty %q: %w", c.quantity, err)
		}
		p.Quantity = &q
	}
	var err error
	if p.Acquisition, err = c.acquisition(); err != nil {
		return p, err
	}
	if p.Bond, err = c.bond(); err != nil {
		return p, err
	}
	if len(set) == 0 {
		return p, errors.New("nothing to change")
	}
	return p, nil
}

type holdingArchiveCmd struct{}

func (*holdingArchiveCmd) Name() string     { return "archive" }
func (*holdingArchiveCmd) Synopsis() string { return "stop valuing a holding" }
func (*holdingArchiveCmd) Usage() string {
	return `networth holding archive <id>...
`
}

func (*holdingArchiveCmd) SetFlags(*flag.FlagSet) {}

func (*holdingArchiveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usage(errors.New("archive needs at least one holding id"))
	}
	ctr, err := open(false)
	if err != nil {
		return fail(err)
	}
	defer ctr.Close()

	for _, id := range f.Args() {
		h, err := ctr.App().HoldingService().Archive(ctx, id)
		if err != nil {
			return fail(err)
		}
		fmt.Printf("%s archived (v%d)\n", h.ID, h.Version)
	}
	return subcommands.ExitSuccess
}

type holdingListCmd struct {
	all bool
	raw bool
}

func (*holdingListCmd) Name() string     { return "list" }
func (*holdingListCmd) Synopsis() string { return "list holdings" }
func (*holdingListCmd) Usage() string {
	return `networth holding list [-all] [-raw]
`
}

func (c *holdingListCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "include archived holdings")
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal styling")
}

func (c *holdingListCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctr, err := open(false)
	if err != nil {
		return fail(err)
	}
	defer ctr.Close()

	list, err := ctr.App().HoldingService().List(ctx, c.all)
	if err != nil {
		return fail(err)
	}
	if err := console.Print(os.Stdout, console.HoldingsMarkdown(list), c.raw); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
