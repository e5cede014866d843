package controller

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/qidev/internal/bus"
	"github.com/oshokin/qidev/internal/device"
	"github.com/oshokin/qidev/internal/logger"
	"github.com/oshokin/qidev/internal/packaging"
)

// Service names on the robot's bus.
const (
	PackageManager  = "PackageManager"
	BehaviorManager = "ALBehaviorManager"
	ServiceManager  = "ALServiceManager"
	AutonomousLife  = "ALAutonomousLife"
	System          = "ALSystem"
	AudioDevice     = "ALAudioDevice"
	Motion          = "ALMotion"
)

const (
	defaultLanguage = "en_US"
	lifeStateOn     = "solitary"
	lifeStateOff    = "disabled"

	fieldName       = "name"
	fieldUUID       = "uuid"
	fieldVersion    = "version"
	fieldLangToName = "langToName"
	fieldBehaviors  = "behaviors"
)

// errUnknownMode is returned for Mode implementations this package does not know.
var errUnknownMode = errors.New("unknown device mode")

// PackageInfo describes an installed package.
type PackageInfo struct {
	// UUID identifies the package.
	UUID string
	// Version is the manifest version.
	Version string
	// Name is the English display name, or the UUID when the package has none.
	Name string
	// Behaviors lists the behavior paths the package provides, when known.
	Behaviors []string
}

// Controller runs operations through a service bus.
type Controller struct {
	bus bus.ServiceBus
	log *zap.SugaredLogger
}

// New returns a Controller calling services on sb.
func New(sb bus.ServiceBus, log *zap.SugaredLogger) *Controller {
	if log == nil {
		log = logger.NewNop()
	}

	return &Controller{bus: sb, log: log}
}

// call resolves service and invokes method on it.
func (c *Controller) call(ctx context.Context, service, method string, args ...any) (*structpb.Value, error) {
	handle, err := c.bus.Resolve(ctx, service)
	if err != nil {
		return nil, err
	}

	return handle.Call(ctx, method, args...)
}

// exec is call for methods whose result does not matter.
func (c *Controller) exec(ctx context.Context, service, method string, args ...any) error {
	_, err := c.call(ctx, service, method, args...)

	return err
}

// InstallPackage installs the archive at archivePath, which must already be
// staged. A package with the same UUID is removed first, best effort.
func (c *Controller) InstallPackage(ctx context.Context, mode device.Mode, archivePath string) error {
	filename := filepath.Base(archivePath)
	uuid := packaging.UUIDFromArchiveName(filename)

	if c.RemovePackage(ctx, uuid).OK() {
		c.log.Infow("Removed previous package", "uuid", uuid)
	}

	var source string

	switch m := mode.(type) {
	case device.Virtual:
		source = archivePath
	case device.Physical:
		source = path.Join(m.Staging, filename)
	default:
		return errUnknownMode
	}

	c.log.Debugw("Installing package", "uuid", uuid, "source", source)

	if err := c.exec(ctx, PackageManager, "install", source); err != nil {
		return fmt.Errorf("install %s: %w", uuid, err)
	}

	return nil
}

// RemovePackage asks the package manager to remove uuid.
func (c *Controller) RemovePackage(ctx context.Context, uuid string) Result {
	return resultOf(c.exec(ctx, PackageManager, "removePkg", uuid))
}

// ListPackages returns the installed packages.
func (c *Controller) ListPackages(ctx context.Context) ([]PackageInfo, error) {
	value, err := c.call(ctx, PackageManager, "packages")
	if err != nil {
		return nil, err
	}

	items, err := bus.AsStructs(value)
	if err != nil {
		return nil, fmt.Errorf("decode packages: %w", err)
	}

	packages := make([]PackageInfo, 0, len(items))
	for _, item := range items {
		packages = append(packages, packageInfo(item))
	}

	return packages, nil
}

// InspectPackage returns the details of one installed package.
func (c *Controller) InspectPackage(ctx context.Context, uuid string) (PackageInfo, error) {
	value, err := c.call(ctx, PackageManager, "package", uuid)
	if err != nil {
		return PackageInfo{}, err
	}

	item, err := bus.AsStruct(value)
	if err != nil {
		return PackageInfo{}, fmt.Errorf("decode package: %w", err)
	}

	return packageInfo(item), nil
}

func packageInfo(item *structpb.Struct) PackageInfo {
	fields := item.GetFields()

	info := PackageInfo{
		UUID:    fields[fieldUUID].GetStringValue(),
		Version: fields[fieldVersion].GetStringValue(),
	}

	names := fields[fieldLangToName].GetStructValue().GetFields()
	if name := names[defaultLanguage].GetStringValue(); name != "" {
		info.Name = name
	} else {
		info.Name = info.UUID
	}

	for _, behavior := range fields[fieldBehaviors].GetListValue().GetValues() {
		if name := behavior.GetStringValue(); name != "" {
			info.Behaviors = append(info.Behaviors, name)
		} else if name = behavior.GetStructValue().GetFields()[fieldName].GetStringValue(); name != "" {
			info.Behaviors = append(info.Behaviors, name)
		}
	}

	return info
}

// RunningBehaviors lists behaviors currently running.
func (c *Controller) RunningBehaviors(ctx context.Context) ([]string, error) {
	return c.strings(ctx, BehaviorManager, "getRunningBehaviors")
}

// InstalledBehaviors lists every installed behavior.
func (c *Controller) InstalledBehaviors(ctx context.Context) ([]string, error) {
	return c.strings(ctx, BehaviorManager, "getInstalledBehaviors")
}

// BehaviorNature returns "interactive" or "solitary" for a behavior.
func (c *Controller) BehaviorNature(ctx context.Context, behavior string) (string, error) {
	value, err := c.call(ctx, BehaviorManager, "getBehaviorNature", behavior)
	if err != nil {
		return "", err
	}

	return bus.AsString(value)
}

// DeclaredServices lists the names of every declared service.
func (c *Controller) DeclaredServices(ctx context.Context) ([]string, error) {
	value, err := c.call(ctx, ServiceManager, "services")
	if err != nil {
		return nil, err
	}

	items, err := bus.AsStructs(value)
	if err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.GetFields()[fieldName].GetStringValue())
	}

	return names, nil
}

// RunningServices lists declared services that are running, asking for each one.
func (c *Controller) RunningServices(ctx context.Context) ([]string, error) {
	declared, err := c.DeclaredServices(ctx)
	if err != nil {
		return nil, err
	}

	running := make([]string, 0, len(declared))

	for _, name := range declared {
		value, err := c.call(ctx, ServiceManager, "isServiceRunning", name)
		if err != nil {
			return nil, err
		}

		isRunning, err := bus.AsBool(value)
		if err != nil {
			return nil, fmt.Errorf("decode %s state: %w", name, err)
		}

		if isRunning {
			running = append(running, name)
		}
	}

	return running, nil
}

// StartBehavior starts a behavior by path.
func (c *Controller) StartBehavior(ctx context.Context, behavior string) Result {
	return resultOf(c.exec(ctx, BehaviorManager, "startBehavior", behavior))
}

// StopBehavior stops a running behavior.
func (c *Controller) StopBehavior(ctx context.Context, behavior string) Result {
	return resultOf(c.exec(ctx, BehaviorManager, "stopBehavior", behavior))
}

// StartService starts a declared service.
func (c *Controller) StartService(ctx context.Context, service string) Result {
	return c.confirm(ctx, ServiceManager, "startService", service)
}

// StopService stops a running service.
func (c *Controller) StopService(ctx context.Context, service string) Result {
	return c.confirm(ctx, ServiceManager, "stopService", service)
}

// confirm calls a method answering a boolean and maps false to a failed Result.
func (c *Controller) confirm(ctx context.Context, service, method string, args ...any) Result {
	value, err := c.call(ctx, service, method, args...)
	if err != nil {
		return resultOf(err)
	}

	ok, err := bus.AsBool(value)
	if err != nil {
		return resultOf(err)
	}

	if !ok {
		return resultOf(fmt.Errorf("%s.%s: %w", service, method, errRefused))
	}

	return Result{}
}

// SwitchFocus makes autonomous life focus activity.
func (c *Controller) SwitchFocus(ctx context.Context, activity string) Result {
	return resultOf(c.exec(ctx, AutonomousLife, "switchFocus", activity))
}

// StopFocus stops the focused activity.
func (c *Controller) StopFocus(ctx context.Context) Result {
	return resultOf(c.exec(ctx, AutonomousLife, "stopFocus"))
}

// FocusedActivity returns the activity autonomous life is focused on, if any.
func (c *Controller) FocusedActivity(ctx context.Context) (string, error) {
	value, err := c.call(ctx, AutonomousLife, "focusedActivity")
	if err != nil {
		return "", err
	}

	return bus.AsString(value)
}

// SetAutonomousLife turns autonomous life on (solitary) or off (disabled).
func (c *Controller) SetAutonomousLife(ctx context.Context, on bool) error {
	state := lifeStateOff
	if on {
		state = lifeStateOn
	}

	return c.exec(ctx, AutonomousLife, "setState", state)
}

// Reboot reboots the robot. The robot does not report back.
func (c *Controller) Reboot(ctx context.Context) error {
	return c.exec(ctx, System, "reboot")
}

// Shutdown powers the robot off. The robot does not report back.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.exec(ctx, System, "shutdown")
}

// RobotName returns the configured robot name.
func (c *Controller) RobotName(ctx context.Context) (string, error) {
	value, err := c.call(ctx, System, "robotName")
	if err != nil {
		return "", err
	}

	return bus.AsString(value)
}

// WakeUp stiffens the motors and stands the robot up.
func (c *Controller) WakeUp(ctx context.Context) error {
	return c.exec(ctx, Motion, "wakeUp")
}

// Rest sends the robot to its resting posture and releases the motors.
func (c *Controller) Rest(ctx context.Context) error {
	return c.exec(ctx, Motion, "rest")
}

// SetVolume applies a volume directive and returns the level that was set.
func (c *Controller) SetVolume(ctx context.Context, directive string) (int, error) {
	parsed, err := ParseVolume(directive)
	if err != nil {
		return 0, err
	}

	value, err := c.call(ctx, AudioDevice, "getOutputVolume")
	if err != nil {
		return 0, err
	}

	current, err := bus.AsInt(value)
	if err != nil {
		return 0, fmt.Errorf("decode volume: %w", err)
	}

	target := parsed.Apply(current)

	c.log.Debugw("Setting volume", "current", current, "target", target)

	if err = c.exec(ctx, AudioDevice, "setOutputVolume", target); err != nil {
		return 0, err
	}

	return target, nil
}

func (c *Controller) strings(ctx context.Context, service, method string) ([]string, error) {
	value, err := c.call(ctx, service, method)
	if err != nil {
		return nil, err
	}

	return bus.AsStrings(value)
}
