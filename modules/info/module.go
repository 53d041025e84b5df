package info

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/wishful-project/agent/internal/upi"
	"github.com/wishful-project/agent/internal/version"
)

// ModuleName is the UPI prefix of this module.
const ModuleName = "info"

// Identity describes the agent hosting the module.
type Identity struct {
	ID   string
	Name string
	Mode string
}

// FunctionLister lists exported UPI functions.
type FunctionLister interface {
	Names() []string
}

// InfoModule exposes agent introspection UPIs.
type InfoModule struct {
	identity Identity
	lister   FunctionLister
	log      *zap.SugaredLogger
}

// NewInfoModule creates a new InfoModule.
func NewInfoModule(identity Identity, lister FunctionLister, log *zap.SugaredLogger) *InfoModule {
	return &InfoModule{
		identity: identity,
		lister:   lister,
		log:      log.Named(ModuleName).With(zap.String("module", ModuleName)),
	}
}

func (m *InfoModule) Name() string {
	return ModuleName
}

func (m *InfoModule) Functions() map[string]upi.Func {
	return map[string]upi.Func{
		"get_agent_info": m.getAgentInfo,
		"list_upis":      m.listUPIs,
	}
}

func (m *InfoModule) Close() error {
	return nil
}

func (m *InfoModule) getAgentInfo(ctx context.Context, args upi.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("failed to get hostname: %w", err)
	}

	kernel, err := kernelRelease()
	if err != nil {
		m.log.Warnw("failed to get kernel release", zap.Error(err))
	}

	return map[string]any{
		"id":       m.identity.ID,
		"name":     m.identity.Name,
		"mode":     m.identity.Mode,
		"version":  version.Version(),
		"hostname": hostname,
		"kernel":   kernel,
	}, nil
}

func (m *InfoModule) listUPIs(ctx context.Context, args upi.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}
	return m.lister.Names(), nil
}

func kernelRelease() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uts.Sysname[:]) + " " + unix.ByteSliceToString(uts.Release[:]), nil
}
