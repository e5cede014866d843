package bus

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"

	"google.golang.org/protobuf/types/known/structpb"
)

// Robot is an in-memory robot serving the stock services over a Server.
// It keeps just enough state for qidev's operations to observe their effects.
type Robot struct {
	mu sync.Mutex

	name       string
	packages   map[string]string
	installed  []string
	running    map[string]bool
	services   map[string]bool
	volume     int
	lifeState  string
	focus      string
	powerState string
	posture    string
}

var (
	errNoSuchPackage   = errors.New("package not found")
	errNoSuchBehavior  = errors.New("behavior not installed")
	errNotRunning      = errors.New("behavior is not running")
	errNoFocus         = errors.New("no activity is focused")
	errArgumentMissing = errors.New("missing argument")
)

const defaultRobotVolume = 50

// NewRobot returns a robot named name with a couple of stock behaviors and services.
func NewRobot(name string) *Robot {
	return &Robot{
		name:      name,
		packages:  make(map[string]string),
		installed: []string{"animations/Stand/Gestures/Hey_1", "dialog_move_head/animations"},
		running:   make(map[string]bool),
		services: map[string]bool{
			"ALTabletService": true,
			"ALVoiceEmotion":  false,
		},
		volume:     defaultRobotVolume,
		lifeState:  "solitary",
		powerState: "on",
		posture:    "crouch",
	}
}

// SetVolume sets the current output volume.
func (r *Robot) SetVolume(level int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.volume = level
}

// Volume returns the current output volume.
func (r *Robot) Volume() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.volume
}

// AddPackage marks uuid as installed from path.
func (r *Robot) AddPackage(uuid, from string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.packages[uuid] = from
}

// Package returns the install path recorded for uuid.
func (r *Robot) Package(uuid string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	from, ok := r.packages[uuid]

	return from, ok
}

// LifeState returns the autonomous life state.
func (r *Robot) LifeState() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lifeState
}

// PowerState returns "on", "rebooting" or "shutdown".
func (r *Robot) PowerState() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.powerState
}

// Posture returns "crouch" after rest and "stand" after wake up.
func (r *Robot) Posture() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.posture
}

// Register installs the robot's services on srv.
func (r *Robot) Register(srv *Server) {
	srv.Register("PackageManager", "install", r.install)
	srv.Register("PackageManager", "removePkg", r.removePackage)
	srv.Register("PackageManager", "packages", r.listPackages)
	srv.Register("PackageManager", "package", r.describePackage)

	srv.Register("ALBehaviorManager", "getInstalledBehaviors", r.installedBehaviors)
	srv.Register("ALBehaviorManager", "getRunningBehaviors", r.runningBehaviors)
	srv.Register("ALBehaviorManager", "getBehaviorNature", r.behaviorNature)
	srv.Register("ALBehaviorManager", "startBehavior", r.startBehavior)
	srv.Register("ALBehaviorManager", "stopBehavior", r.stopBehavior)

	srv.Register("ALServiceManager", "services", r.listServices)
	srv.Register("ALServiceManager", "isServiceRunning", r.isServiceRunning)
	srv.Register("ALServiceManager", "startService", r.toggleService(true))
	srv.Register("ALServiceManager", "stopService", r.toggleService(false))

	srv.Register("ALAutonomousLife", "setState", r.setLifeState)
	srv.Register("ALAutonomousLife", "getState", r.getLifeState)
	srv.Register("ALAutonomousLife", "switchFocus", r.switchFocus)
	srv.Register("ALAutonomousLife", "stopFocus", r.stopFocus)
	srv.Register("ALAutonomousLife", "focusedActivity", r.focusedActivity)

	srv.Register("ALSystem", "robotName", r.robotName)
	srv.Register("ALSystem", "reboot", r.setPower("rebooting"))
	srv.Register("ALSystem", "shutdown", r.setPower("shutdown"))

	srv.Register("ALAudioDevice", "getOutputVolume", r.getVolume)
	srv.Register("ALAudioDevice", "setOutputVolume", r.setVolume)

	srv.Register("ALMotion", "wakeUp", r.setPosture("stand"))
	srv.Register("ALMotion", "rest", r.setPosture("crouch"))
}

func (r *Robot) install(_ context.Context, args []*structpb.Value) (*structpb.Value, error) {
	from, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	uuid := strings.TrimSuffix(path.Base(strings.ReplaceAll(from, "\\", "/")), ".pkg")
	r.AddPackage(uuid, from)

	return structpb.NewBoolValue(true), nil
}

func (r *Robot) removePackage(_ context.Context, args []*structpb.Value) (*structpb.Value, error) {
	uuid, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.packages[uuid]; !ok {
		return nil, fmt.Errorf("%s: %w", uuid, errNoSuchPackage)
	}

	delete(r.packages, uuid)

	return structpb.NewBoolValue(true), nil
}

func (r *Robot) listPackages(context.Context, []*structpb.Value) (*structpb.Value, error) {
	r.mu.Lock()
	uuids := make([]string, 0, len(r.packages))

	for uuid := range r.packages {
		uuids = append(uuids, uuid)
	}
	r.mu.Unlock()

	sort.Strings(uuids)

	items := make([]any, 0, len(uuids))
	for _, uuid := range uuids {
		items = append(items, packageDescription(uuid))
	}

	return structpb.NewValue(items)
}

func (r *Robot) describePackage(_ context.Context, args []*structpb.Value) (*structpb.Value, error) {
	uuid, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	if _, ok := r.Package(uuid); !ok {
		return nil, fmt.Errorf("%s: %w", uuid, errNoSuchPackage)
	}

	return structpb.NewValue(packageDescription(uuid))
}

func packageDescription(uuid string) map[string]any {
	return map[string]any{
		"uuid":       uuid,
		"version":    "0.0.1",
		"langToName": map[string]any{"en_US": uuid},
		"behaviors":  []any{uuid + "/behavior_1"},
	}
}

func (r *Robot) installedBehaviors(context.Context, []*structpb.Value) (*structpb.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return stringList(r.installed)
}

func (r *Robot) runningBehaviors(context.Context, []*structpb.Value) (*structpb.Value, error) {
	r.mu.Lock()
	names := make([]string, 0, len(r.running))

	for name := range r.running {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names)

	return stringList(names)
}

func (r *Robot) behaviorNature(_ context.Context, args []*structpb.Value) (*structpb.Value, error) {
	name, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !slices.Contains(r.installed, name) {
		return nil, fmt.Errorf("%s: %w", name, errNoSuchBehavior)
	}

	return structpb.NewStringValue("interactive"), nil
}

func (r *Robot) startBehavior(_ context.Context, args []*structpb.Value) (*structpb.Value, error) {
	name, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !slices.Contains(r.installed, name) {
		return nil, fmt.Errorf("%s: %w", name, errNoSuchBehavior)
	}

	r.running[name] = true

	return nil, nil //nolint:nilnil // Void remote method.
}

func (r *Robot) stopBehavior(_ context.Context, args []*structpb.Value) (*structpb.Value, error) {
	name, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running[name] {
		return nil, fmt.Errorf("%s: %w", name, errNotRunning)
	}

	delete(r.running, name)

	return nil, nil //nolint:nilnil // Void remote method.
}

func (r *Robot) listServices(context.Context, []*structpb.Value) (*structpb.Value, error) {
	r.mu.Lock()
	names := make([]string, 0, len(r.services))

	for name := range r.services {
		names = append(names, name)
	}

	sort.Strings(names)

	items := make([]any, 0, len(names))
	for _, name := range names {
		items = append(items, map[string]any{
			"name":      name,
			"execStart": "/home/nao/.local/share/PackageManager/apps/" + name + "/launcher",
			"running":   r.services[name],
		})
	}
	r.mu.Unlock()

	return structpb.NewValue(items)
}

func (r *Robot) isServiceRunning(_ context.Context, args []*structpb.Value) (*structpb.Value, error) {
	name, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return structpb.NewBoolValue(r.services[name]), nil
}

func (r *Robot) toggleService(running bool) Handler {
	return func(_ context.Context, args []*structpb.Value) (*structpb.Value, error) {
		name, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()

		current, declared := r.services[name]
		if !declared || current == running {
			return structpb.NewBoolValue(false), nil
		}

		r.services[name] = running

		return structpb.NewBoolValue(true), nil
	}
}

func (r *Robot) setLifeState(_ context.Context, args []*structpb.Value) (*structpb.Value, error) {
	state, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lifeState = state

	return nil, nil //nolint:nilnil // Void remote method.
}

func (r *Robot) getLifeState(context.Context, []*structpb.Value) (*structpb.Value, error) {
	return structpb.NewStringValue(r.LifeState()), nil
}

func (r *Robot) switchFocus(_ context.Context, args []*structpb.Value) (*structpb.Value, error) {
	activity, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !slices.Contains(r.installed, activity) {
		return nil, fmt.Errorf("%s: %w", activity, errNoSuchBehavior)
	}

	r.focus = activity

	return nil, nil //nolint:nilnil // Void remote method.
}

func (r *Robot) stopFocus(context.Context, []*structpb.Value) (*structpb.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.focus == "" {
		return nil, errNoFocus
	}

	r.focus = ""

	return nil, nil //nolint:nilnil // Void remote method.
}

func (r *Robot) focusedActivity(context.Context, []*structpb.Value) (*structpb.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return structpb.NewStringValue(r.focus), nil
}

func (r *Robot) robotName(context.Context, []*structpb.Value) (*structpb.Value, error) {
	return structpb.NewStringValue(r.name), nil
}

func (r *Robot) setPower(state string) Handler {
	return func(context.Context, []*structpb.Value) (*structpb.Value, error) {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.powerState = state

		return nil, nil //nolint:nilnil // Void remote method.
	}
}

func (r *Robot) getVolume(context.Context, []*structpb.Value) (*structpb.Value, error) {
	return structpb.NewNumberValue(float64(r.Volume())), nil
}

func (r *Robot) setVolume(_ context.Context, args []*structpb.Value) (*structpb.Value, error) {
	if len(args) == 0 {
		return nil, errArgumentMissing
	}

	r.SetVolume(int(args[0].GetNumberValue()))

	return nil, nil //nolint:nilnil // Void remote method.
}

func (r *Robot) setPosture(posture string) Handler {
	return func(context.Context, []*structpb.Value) (*structpb.Value, error) {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.posture = posture

		return nil, nil //nolint:nilnil // Void remote method.
	}
}

func stringArg(args []*structpb.Value, index int) (string, error) {
	if index >= len(args) {
		return "", fmt.Errorf("argument %d: %w", index, errArgumentMissing)
	}

	return args[index].GetStringValue(), nil
}

func stringList(values []string) (*structpb.Value, error) {
	items := make([]any, 0, len(values))
	for _, v := range values {
		items = append(items, v)
	}

	return structpb.NewValue(items)
}
