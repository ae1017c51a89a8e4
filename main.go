package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/openqa-tools/ocw/internal/config"
	"github.com/openqa-tools/ocw/internal/log"
	"github.com/openqa-tools/ocw/internal/o11y"
	"github.com/openqa-tools/ocw/internal/providers"
	ec2provider "github.com/openqa-tools/ocw/internal/providers/ec2"
	"github.com/openqa-tools/ocw/internal/vault"
)

// set by the goreleaser configuration.
var version string = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app := newApp()
	if err := app.command().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type app struct {
	registry        *providers.Registry[*ec2provider.Provider]
	shutdownTracing func(context.Context) error
}

func newApp() *app {
	return &app{
		shutdownTracing: func(context.Context) error { return nil },
	}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:    "ocw",
		Usage:   "watch and clean up EC2/EKS resources left behind by cloud tests",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "namespace",
				Usage:    "vault namespace (tenant) to operate on",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "log deletions without performing them",
			},
		},
		Before: a.setup,
		After: func(ctx context.Context, cmd *cli.Command) error {
			return a.shutdownTracing(ctx)
		},
		Commands: []*cli.Command{
			{
				Name:   "regions",
				Usage:  "list all enabled regions",
				Action: a.regions,
			},
			{
				Name:  "instances",
				Usage: "list EC2 instances in one region",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "region",
						Usage: "region to list (default: the configured default region)",
					},
				},
				Action: a.instances,
			},
			{
				Name:   "clusters",
				Usage:  "list EKS clusters across all regions",
				Action: a.clusters,
			},
			{
				Name:      "delete-instance",
				Usage:     "terminate one EC2 instance by id",
				ArgsUsage: "<instance-id>",
				Action:    a.deleteInstance,
			},
			{
				Name:   "cleanup-images",
				Usage:  "deregister machine images the retention policy does not keep",
				Action: a.cleanupImages,
			},
		},
	}
}

// setup wires logging, tracing and the provider registry before any
// subcommand runs.
func (a *app) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	ctx = log.Setup(ctx, cmd.Bool("debug"))
	ctx = log.With(ctx, o11y.AttrRunID, uuid.New().String())

	shutdown, err := o11y.SetupTracing(ctx)
	if err != nil {
		return ctx, fmt.Errorf("failed to set up tracing: %w", err)
	}
	a.shutdownTracing = shutdown

	cfg, err := config.Load()
	if err != nil {
		return ctx, err
	}
	if cmd.Bool("dry-run") {
		cfg.DryRun = true
	}

	a.registry = providers.NewRegistry(func(namespace string) (*ec2provider.Provider, error) {
		cred, err := vault.New(namespace, vault.Config{
			Addr:     cfg.VaultAddr,
			User:     cfg.VaultUser,
			Password: cfg.VaultPassword,
			CertDir:  cfg.VaultCertDir,
			Role:     cfg.VaultRole,
		})
		if err != nil {
			return nil, err
		}
		return ec2provider.New(namespace, cred, ec2provider.Options{
			DefaultRegion:      cfg.DefaultRegion,
			MaxImagesPerFlavor: cfg.MaxImagesPerFlavor,
			MaxImageAge:        cfg.MaxImageAge,
			CheckRetries:       cfg.CredCheckRetries,
			CheckInterval:      cfg.CredCheckInterval,
			DryRun:             cfg.DryRun,
		}), nil
	})
	return ctx, nil
}

// start opens a span for one subcommand and tags the logger with the
// operation name.
func (a *app) start(ctx context.Context, operation string) (context.Context, trace.Span) {
	ctx, span := o11y.Tracer().Start(ctx, operation)
	ctx = log.With(ctx, o11y.AttrOperation, operation)
	return ctx, span
}

func (a *app) provider(ctx context.Context, cmd *cli.Command) (context.Context, *ec2provider.Provider, error) {
	namespace := cmd.String("namespace")
	ctx = log.With(ctx, o11y.AttrNamespace, namespace)
	provider, err := a.registry.Get(ctx, namespace)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, provider, nil
}

func (a *app) regions(ctx context.Context, cmd *cli.Command) error {
	ctx, span := a.start(ctx, "regions")
	defer span.End()

	ctx, provider, err := a.provider(ctx, cmd)
	if err != nil {
		return err
	}
	regions, err := provider.Regions(ctx)
	if err != nil {
		return err
	}
	for _, region := range regions {
		fmt.Println(region)
	}
	return nil
}

func (a *app) instances(ctx context.Context, cmd *cli.Command) error {
	ctx, span := a.start(ctx, "instances")
	defer span.End()

	ctx, provider, err := a.provider(ctx, cmd)
	if err != nil {
		return err
	}
	region := cmd.String("region")
	if region == "" {
		region = provider.DefaultRegion()
	}
	ctx = log.With(ctx, o11y.AttrRegion, region)
	instances, err := provider.ListInstances(ctx, region)
	if err != nil {
		return err
	}
	for _, instance := range instances {
		launched := "unknown launch time"
		if instance.LaunchTime != nil {
			launched = humanize.Time(*instance.LaunchTime)
		}
		state := "unknown"
		if instance.State != nil {
			state = string(instance.State.Name)
		}
		fmt.Printf("%s\t%s\t%s\n", aws.ToString(instance.InstanceId), state, launched)
	}
	return nil
}

func (a *app) clusters(ctx context.Context, cmd *cli.Command) error {
	ctx, span := a.start(ctx, "clusters")
	defer span.End()

	ctx, provider, err := a.provider(ctx, cmd)
	if err != nil {
		return err
	}
	clusters, err := provider.Clusters(ctx)
	if err != nil {
		return err
	}
	for _, cluster := range clusters {
		fmt.Println(cluster)
	}
	return nil
}

func (a *app) deleteInstance(ctx context.Context, cmd *cli.Command) error {
	ctx, span := a.start(ctx, "delete-instance")
	defer span.End()

	instanceID := cmd.Args().First()
	if instanceID == "" {
		return fmt.Errorf("an instance id is required")
	}
	ctx, provider, err := a.provider(ctx, cmd)
	if err != nil {
		return err
	}
	return provider.DeleteInstance(ctx, instanceID)
}

func (a *app) cleanupImages(ctx context.Context, cmd *cli.Command) error {
	ctx, span := a.start(ctx, "cleanup-images")
	defer span.End()

	ctx, provider, err := a.provider(ctx, cmd)
	if err != nil {
		return err
	}
	log.Info(ctx, "starting image cleanup")
	return provider.CleanupImages(ctx)
}
