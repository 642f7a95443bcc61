package drivers

import (
	"context"
	"fmt"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/sctg-development/photoacoustic-core/internal/action"
)

// FCMDriver pushes alert events to a registered mobile device via
// Firebase Cloud Messaging, for deployments where the operator carries
// a phone rather than watching a dashboard. Measurement updates are
// not pushed — FCM delivery is reserved for alerts, to avoid paging a
// phone on every tick.
type FCMDriver struct {
	credentialsFile string
	deviceToken     string

	mu     sync.RWMutex
	client *messaging.Client
}

// NewFCMDriver builds an FCMDriver targeting deviceToken. credentialsFile
// may be empty to fall back to GOOGLE_APPLICATION_CREDENTIALS.
func NewFCMDriver(credentialsFile, deviceToken string) *FCMDriver {
	return &FCMDriver{credentialsFile: credentialsFile, deviceToken: deviceToken}
}

func (d *FCMDriver) Initialize(ctx context.Context) error {
	var opts []option.ClientOption
	if d.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(d.credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return fmt.Errorf("fcm driver: initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("fcm driver: obtaining messaging client: %w", err)
	}

	d.mu.Lock()
	d.client = client
	d.mu.Unlock()
	return nil
}

func (d *FCMDriver) UpdateAction(ctx context.Context, data action.MeasurementData) error {
	return nil
}

func (d *FCMDriver) ShowAlert(ctx context.Context, alert action.AlertData) error {
	d.mu.RLock()
	client := d.client
	d.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("fcm driver: not initialized")
	}

	msg := &messaging.Message{
		Token: d.deviceToken,
		Notification: &messaging.Notification{
			Title: "Gas analyzer alert",
			Body:  alert.Message,
		},
		Data: map[string]string{
			"type":     alert.Type,
			"severity": alert.Severity,
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	}

	id, err := client.Send(ctx, msg)
	if err != nil {
		if messaging.IsUnregistered(err) {
			return fmt.Errorf("fcm driver: device token no longer valid: %w", err)
		}
		return fmt.Errorf("fcm driver: send failed: %w", err)
	}
	_ = id
	return nil
}

func (d *FCMDriver) ClearAction(ctx context.Context) error { return nil }

func (d *FCMDriver) GetStatus(ctx context.Context) (map[string]any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return map[string]any{
		"driver_type": d.DriverType(),
		"connected":   d.client != nil,
	}, nil
}

func (d *FCMDriver) DriverType() string { return "fcm" }

func (d *FCMDriver) Shutdown(ctx context.Context) error { return nil }
