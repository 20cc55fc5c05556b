package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"chowtrack/models"
	"chowtrack/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

// PushNotifier delivers reminders through SNS platform endpoints. Devices
// are kept as a per-user blob so the delivery list survives restarts.
type PushNotifier struct {
	store          storage.Store
	sns            *awssns.Client
	fcmPlatformArn string
	log            *slog.Logger
}

func NewPushNotifier(store storage.Store, region, fcmPlatformArn string, log *slog.Logger) (*PushNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &PushNotifier{
		store:          store,
		sns:            awssns.NewFromConfig(cfg),
		fcmPlatformArn: fcmPlatformArn,
		log:            log,
	}, nil
}

var _ Notifier = (*PushNotifier)(nil)

func tokenHash(tok string) string {
	h := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(h[:])
}

func (p *PushNotifier) platformArn(platform string) (string, error) {
	switch strings.ToLower(platform) {
	case "android", "ios":
		if p.fcmPlatformArn == "" {
			return "", errors.New("SNS_FCM_ARN not set")
		}
		return p.fcmPlatformArn, nil
	default:
		return "", errors.New("unknown platform")
	}
}

func (p *PushNotifier) devices(userID string) []models.Device {
	var devs []models.Device
	raw, ok, err := p.store.Get(storage.UserKey(userID, storage.KindDevices))
	if err != nil || !ok {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &devs); err != nil {
		p.log.Warn("corrupt device list treated as empty", "user", userID, "err", err)
		return nil
	}
	return devs
}

func (p *PushNotifier) saveDevices(userID string, devs []models.Device) error {
	raw, err := json.Marshal(devs)
	if err != nil {
		return err
	}
	return p.store.Put(storage.UserKey(userID, storage.KindDevices), string(raw))
}

// RegisterDevice exchanges a device push token for an SNS endpoint and
// records it. Re-registering the same token refreshes the endpoint in place.
func (p *PushNotifier) RegisterDevice(userID, platform, token string) (models.Device, error) {
	appArn, err := p.platformArn(platform)
	if err != nil {
		return models.Device{}, err
	}

	out, err := p.sns.CreatePlatformEndpoint(context.TODO(), &awssns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appArn),
		Token:                  aws.String(token),
	})
	if err != nil {
		return models.Device{}, err
	}

	dev := models.Device{
		ID:          uuid.NewString(),
		Platform:    strings.ToLower(platform),
		TokenHash:   tokenHash(token),
		EndpointARN: aws.ToString(out.EndpointArn),
		UpdatedAt:   time.Now(),
	}

	devs := p.devices(userID)
	for i, existing := range devs {
		if existing.TokenHash == dev.TokenHash {
			dev.ID = existing.ID
			devs[i] = dev
			return dev, p.saveDevices(userID, devs)
		}
	}
	devs = append(devs, dev)
	return dev, p.saveDevices(userID, devs)
}

// Devices lists the registered push targets for one user.
func (p *PushNotifier) Devices(userID string) []models.Device {
	return p.devices(userID)
}

func (p *PushNotifier) PostReminder(userID, channel, title, body string) {
	devs := p.devices(userID)
	if len(devs) == 0 {
		return
	}

	msg := map[string]any{
		"default": body,
		"GCM": map[string]any{
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": map[string]string{"channel": channel},
		},
	}
	raw, _ := json.Marshal(msg)

	for _, d := range devs {
		_, err := p.sns.Publish(context.TODO(), &awssns.PublishInput{
			MessageStructure: aws.String("json"),
			Message:          aws.String(string(raw)),
			TargetArn:        aws.String(d.EndpointARN),
		})
		if err != nil {
			p.log.Warn("sns publish failed", "user", userID, "endpoint", d.EndpointARN, "err", err)
		}
	}
}
