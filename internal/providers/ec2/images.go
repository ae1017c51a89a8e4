package ec2

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdkec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/dustin/go-humanize"

	"github.com/openqa-tools/ocw/internal/log"
	"github.com/openqa-tools/ocw/internal/providers"
)

var (
	ErrListImages      = fmt.Errorf("failed to list machine images")
	ErrDeregisterImage = fmt.Errorf("failed to deregister machine image")
)

// CleanupImages deregisters every self-owned AMI the retention policy does
// not keep. Per image flavor the newest MaxImagesPerFlavor builds survive,
// and only while younger than MaxImageAge. Unparseable image names are
// logged and left alone.
func (p *Provider) CleanupImages(ctx context.Context) error {
	ctx = log.With(ctx, "namespace", p.namespace)

	client, err := p.ec2Client(ctx, p.opts.DefaultRegion)
	if err != nil {
		return err
	}
	result, err := client.DescribeImages(ctx, &sdkec2.DescribeImagesInput{
		Owners: []string{"self"},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListImages, err)
	}

	var images []providers.Image
	for _, img := range result.Images {
		name := aws.ToString(img.Name)
		info, ok := ParseImageName(name)
		if !ok {
			log.Error(ctx, "unable to parse image name", "image", name)
			continue
		}
		created, err := time.Parse(time.RFC3339, aws.ToString(img.CreationDate))
		if err != nil {
			log.Error(ctx, "unable to parse image creation date",
				"image", name, "creation_date", aws.ToString(img.CreationDate))
			continue
		}
		log.Debug(ctx, "image is candidate for deletion",
			"image", name, "build", info.BuildVersion())
		images = append(images, providers.Image{
			Name:   name,
			Flavor: info.Key(),
			Build:  info.BuildVersion(),
			Date:   created,
			ID:     aws.ToString(img.ImageId),
		})
	}

	keep := providers.KeepImageNames(images,
		p.opts.MaxImagesPerFlavor,
		time.Now().Add(-p.opts.MaxImageAge),
	)

	for _, img := range images {
		if _, ok := keep[img.Name]; ok {
			continue
		}
		log.Info(ctx, "deleting image",
			"image", img.Name,
			"ami", img.ID,
			"age", humanize.Time(img.Date),
			"dry_run", p.opts.DryRun,
		)
		if p.opts.DryRun {
			continue
		}
		if _, err := client.DeregisterImage(ctx, &sdkec2.DeregisterImageInput{
			ImageId: aws.String(img.ID),
		}); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrDeregisterImage, img.ID, err)
		}
	}
	return nil
}
