package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/marketplace-payments/internal/checkout"
	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

func main() {
	app := &cli.App{
		Name:  "checkout",
		Usage: "drive a marketplace checkout against the payments API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Value: "http://localhost:8082", EnvVars: []string{"PAYMENTS_API_URL"}, Usage: "payments API base URL"},
			&cli.StringFlag{Name: "token", EnvVars: []string{"PAYMENTS_TOKEN"}, Required: true, Usage: "buyer bearer token"},
			&cli.DurationFlag{Name: "interval", Value: checkoutDefaults.PollInterval, Usage: "poll interval"},
			&cli.IntFlag{Name: "attempts", Value: checkoutDefaults.MaxAttempts, Usage: "poll attempts before giving up"},
			&cli.BoolFlag{Name: "verbose", Usage: "log state transitions"},
		},
		Commands: []*cli.Command{
			{
				Name:  "checkout",
				Usage: "create an order from the cart file, start a payment and wait for the result",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "cart", Value: "cart.json", Usage: "cart file (JSON array of {product_id, qty})"},
					&cli.StringFlag{Name: "method", Value: string(models.MethodCardLink), Usage: "cardlink, qrpay or hostedform"},
					&cli.StringFlag{Name: "description", Usage: "description shown by the provider"},
					&cli.StringFlag{Name: "email", Usage: "buyer email"},
					&cli.StringFlag{Name: "name", Usage: "buyer name"},
				},
				Action: func(c *cli.Context) error {
					o := checkout.New(backend(c), checkout.FileCart{Path: c.String("cart")}, orchestratorConfig(c))
					return pay(c, o)
				},
			},
			{
				Name:      "pay",
				Usage:     "start a new payment for an existing order",
				ArgsUsage: "ORDER_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "cart", Value: "cart.json", Usage: "cart file cleared on success"},
					&cli.StringFlag{Name: "method", Value: string(models.MethodCardLink)},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "email"},
					&cli.StringFlag{Name: "name"},
				},
				Action: func(c *cli.Context) error {
					orderID := c.Args().First()
					if orderID == "" {
						return cli.Exit("ORDER_ID is required", 2)
					}
					o := checkout.Retry(backend(c), checkout.FileCart{Path: c.String("cart")}, orchestratorConfig(c), orderID)
					return pay(c, o)
				},
			},
			{
				Name:      "status",
				Usage:     "poll an order until its payment settles",
				ArgsUsage: "ORDER_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "cart", Value: "cart.json", Usage: "cart file cleared on success"},
				},
				Action: func(c *cli.Context) error {
					orderID := c.Args().First()
					if orderID == "" {
						return cli.Exit("ORDER_ID is required", 2)
					}
					o := checkout.Resume(backend(c), checkout.FileCart{Path: c.String("cart")}, orchestratorConfig(c), orderID)
					return await(c, o)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var checkoutDefaults = checkout.DefaultConfig()

func backend(c *cli.Context) *checkout.HTTPBackend {
	return checkout.NewHTTPBackend(c.String("api"), c.String("token"), 0)
}

func orchestratorConfig(c *cli.Context) checkout.Config {
	cfg := checkout.Config{
		PollInterval: c.Duration("interval"),
		MaxAttempts:  c.Int("attempts"),
		BuyerEmail:   c.String("email"),
		BuyerName:    c.String("name"),
	}
	if c.Bool("verbose") {
		logger, err := zap.NewDevelopment()
		if err == nil {
			cfg.Logger = logger
		}
	}
	return cfg
}

func pay(c *cli.Context, o *checkout.Orchestrator) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := o.Start(ctx, models.PaymentMethod(c.String("method")), c.String("description"))
	if err != nil {
		if id := o.OrderID(); id != "" {
			return cli.Exit(fmt.Sprintf("payment could not start: %v\nretry with: checkout pay %s", err, id), 1)
		}
		return cli.Exit(fmt.Sprintf("payment could not start: %v", err), 1)
	}

	fmt.Printf("order:   %s\npayment: %s\n", o.OrderID(), handle.PaymentID)
	switch o.State() {
	case checkout.StateAwaitingScanPayment:
		fmt.Printf("scan to pay:\n  %s\n", handle.QRCode)
	default:
		fmt.Printf("continue at:\n  %s\n", handle.RedirectURL)
	}
	return awaitCtx(ctx, o)
}

func await(c *cli.Context, o *checkout.Orchestrator) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return awaitCtx(ctx, o)
}

func awaitCtx(ctx context.Context, o *checkout.Orchestrator) error {
	state, err := o.Await(ctx)
	switch state {
	case checkout.StateSuccess:
		fmt.Println("payment received, cart cleared")
		return nil
	case checkout.StateTimedOut:
		return cli.Exit(fmt.Sprintf("still processing, check back later: checkout status %s", o.OrderID()), 3)
	case checkout.StateFailed:
		return cli.Exit(fmt.Sprintf("%v\ntry payment again: checkout pay %s", err, o.OrderID()), 1)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("stopped waiting: %v", err), 1)
	}
	return nil
}
