package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumahub/luma-core/internal/infrastructure/logging"
)

// Registry is the service layer over the device repository. It validates
// input, generates IDs, and is the collaborator other packages (the access
// authority, the API, the telemetry ingestor) consult for device metadata.
type Registry struct {
	repo   Repository
	logger *logging.Logger
}

// NewRegistry creates a new device registry over the given repository.
func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo}
}

// SetLogger sets the logger used for registry warnings.
func (r *Registry) SetLogger(logger *logging.Logger) {
	r.logger = logger
}

// Register validates and stores a new device. A missing ID is generated,
// a missing type defaults to relay, and the status starts as unknown
// until the device reports on the bus.
func (r *Registry) Register(ctx context.Context, dev *Device) error {
	dev.Name = strings.TrimSpace(dev.Name)
	if dev.Name == "" {
		return ErrInvalidName
	}

	if dev.Type == "" {
		dev.Type = TypeRelay
	}
	if !IsValidType(dev.Type) {
		return fmt.Errorf("%w: %q", ErrInvalidType, dev.Type)
	}

	if dev.ID == "" {
		dev.ID = "dev-" + uuid.NewString()[:8]
	}
	dev.Status = StatusUnknown
	dev.LastSeen = nil

	if err := r.repo.Create(ctx, dev); err != nil {
		return err
	}
	return nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if it does not exist.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	return r.repo.GetByID(ctx, id)
}

// ListDevices returns all registered devices.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	return r.repo.List(ctx)
}

// Rename changes a device's display name.
//
// Access records that denormalised the old name keep it; the registry is
// the live source for listings.
func (r *Registry) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}

	dev, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	dev.Name = name
	return r.repo.Update(ctx, dev)
}

// MarkSeen records a status report from the bus: connection status plus
// the moment the device was last heard from.
func (r *Registry) MarkSeen(ctx context.Context, id string, status Status, seenAt time.Time) error {
	if !IsValidStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return r.repo.UpdateStatus(ctx, id, status, seenAt)
}

// Remove deletes a device from the registry.
//
// Access records for the device are left in place; listings skip them
// once the device no longer resolves, and a revoke cleans them up
// individually.
func (r *Registry) Remove(ctx context.Context, id string) error {
	return r.repo.Delete(ctx, id)
}
