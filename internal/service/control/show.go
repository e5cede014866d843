package control

import (
	"context"

	"github.com/oshokin/qidev/internal/controller"
	"github.com/oshokin/qidev/internal/service/common"
)

// ShowQuery selects what Show lists. The zero value lists installed packages.
type ShowQuery struct {
	// Services lists declared services and whether they run.
	Services bool
	// Inspect describes one package. Set Package, or leave it empty to be asked.
	Inspect bool
	// Package is the UUID to inspect.
	Package string
	// Active lists running behaviors, running services and the focused activity.
	Active bool
}

// ServiceState is a declared service and whether it runs.
type ServiceState struct {
	Name    string
	Running bool
}

// Listing is the answer to a ShowQuery. Only the fields the query asked for are set.
type Listing struct {
	Packages         []controller.PackageInfo
	Package          *controller.PackageInfo
	Services         []ServiceState
	RunningBehaviors []string
	RunningServices  []string
	FocusedActivity  string
}

// Show answers query about the robot's content.
func Show(ctx context.Context, opts *common.ConnectOptions, query ShowQuery, chooser Chooser) (*Listing, error) {
	listing := new(Listing)

	err := withController(ctx, opts, func(c *controller.Controller) error {
		switch {
		case query.Services:
			return listServices(ctx, c, listing)
		case query.Inspect:
			return inspectPackage(ctx, c, query.Package, chooser, listing)
		case query.Active:
			return listActive(ctx, c, listing)
		default:
			packages, err := c.ListPackages(ctx)
			listing.Packages = packages

			return err
		}
	})
	if err != nil {
		return nil, err
	}

	return listing, nil
}

func listServices(ctx context.Context, c *controller.Controller, listing *Listing) error {
	declared, err := c.DeclaredServices(ctx)
	if err != nil {
		return err
	}

	running, err := c.RunningServices(ctx)
	if err != nil {
		return err
	}

	isRunning := make(map[string]bool, len(running))
	for _, name := range running {
		isRunning[name] = true
	}

	for _, name := range declared {
		listing.Services = append(listing.Services, ServiceState{Name: name, Running: isRunning[name]})
	}

	return nil
}

func inspectPackage(
	ctx context.Context,
	c *controller.Controller,
	uuid string,
	chooser Chooser,
	listing *Listing,
) error {
	uuid, err := choose(uuid, "Package", chooser, func() ([]string, error) {
		packages, err := c.ListPackages(ctx)
		if err != nil {
			return nil, err
		}

		uuids := make([]string, 0, len(packages))
		for _, p := range packages {
			uuids = append(uuids, p.UUID)
		}

		return uuids, nil
	})
	if err != nil {
		return err
	}

	info, err := c.InspectPackage(ctx, uuid)
	if err != nil {
		return err
	}

	listing.Package = &info

	return nil
}

func listActive(ctx context.Context, c *controller.Controller, listing *Listing) error {
	var err error

	if listing.RunningBehaviors, err = c.RunningBehaviors(ctx); err != nil {
		return err
	}

	if listing.RunningServices, err = c.RunningServices(ctx); err != nil {
		return err
	}

	listing.FocusedActivity, err = c.FocusedActivity(ctx)

	return err
}
