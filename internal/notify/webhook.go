package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/alcoolio/neighbourgood/internal/activity"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	deliveryTimeout = 10 * time.Second

	headerDeliveryID = "X-Neighbourgood-Delivery"
	headerEvent      = "X-Neighbourgood-Event"
	headerSignature  = "X-Neighbourgood-Signature"
)

var errMissingDatabase = errors.New("notify: database handle is required")

// Subscription registers an endpoint for activity event delivery. An empty
// EventType receives every event.
type Subscription struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	URL       string    `gorm:"column:url;size:500;not null" json:"url"`
	EventType string    `gorm:"column:event_type;size:30;not null;default:'';index" json:"event_type"`
	Secret    string    `gorm:"column:secret;size:64;not null;default:''" json:"-"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Subscription) TableName() string {
	return "webhook_subscriptions"
}

// WebhookDispatcherConfig describes the dependencies for webhook fan-out.
type WebhookDispatcherConfig struct {
	Database *gorm.DB
	Client   *http.Client
	Clock    func() time.Time
	Logger   *zap.Logger
}

// WebhookDispatcher delivers activity events to subscribed endpoints.
// Delivery is asynchronous and best-effort: failures are logged and
// swallowed, never surfaced to the operation that produced the event.
type WebhookDispatcher struct {
	db     *gorm.DB
	client *http.Client
	clock  func() time.Time
	logger *zap.Logger
}

// NewWebhookDispatcher constructs the dispatcher.
func NewWebhookDispatcher(cfg WebhookDispatcherConfig) (*WebhookDispatcher, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: deliveryTimeout}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookDispatcher{db: cfg.Database, client: client, clock: clock, logger: logger}, nil
}

type deliveryPayload struct {
	DeliveryID  string    `json:"delivery_id"`
	EventType   string    `json:"event_type"`
	Summary     string    `json:"summary"`
	ActorID     uint      `json:"actor_id"`
	CommunityID *uint     `json:"community_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notify fans the event out to matching subscriptions in the background.
func (d *WebhookDispatcher) Notify(event activity.Event) {
	go d.deliver(event)
}

func (d *WebhookDispatcher) deliver(event activity.Event) {
	var subscriptions []Subscription
	err := d.db.
		Where("is_active = ? AND (event_type = '' OR event_type = ?)", true, event.EventType).
		Find(&subscriptions).Error
	if err != nil {
		d.logger.Error("webhook subscription lookup failed", zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload := deliveryPayload{
		DeliveryID:  uuid.NewString(),
		EventType:   event.EventType,
		Summary:     event.Summary,
		ActorID:     event.ActorID,
		CommunityID: event.CommunityID,
		OccurredAt:  event.CreatedAt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("webhook payload encode failed", zap.Error(err))
		return
	}

	for _, subscription := range subscriptions {
		d.post(subscription, payload.DeliveryID, event.EventType, body)
	}
}

func (d *WebhookDispatcher) post(subscription Subscription, deliveryID, eventType string, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, subscription.URL, bytes.NewReader(body))
	if err != nil {
		d.logger.Warn("webhook request build failed",
			zap.Error(err), zap.String("url", subscription.URL))
		return
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(headerDeliveryID, deliveryID)
	request.Header.Set(headerEvent, eventType)
	if subscription.Secret != "" {
		request.Header.Set(headerSignature, sign(subscription.Secret, body))
	}

	response, err := d.client.Do(request)
	if err != nil {
		d.logger.Warn("webhook delivery failed",
			zap.Error(err), zap.String("url", subscription.URL))
		return
	}
	defer response.Body.Close()

	if response.StatusCode >= 300 {
		d.logger.Warn("webhook delivery rejected",
			zap.String("url", subscription.URL),
			zap.Int("status", response.StatusCode))
	}
}

// Subscribe registers a delivery endpoint.
func (d *WebhookDispatcher) Subscribe(ctx context.Context, url, eventType, secret string) (*Subscription, error) {
	subscription := Subscription{
		URL:       url,
		EventType: eventType,
		Secret:    secret,
		IsActive:  true,
		CreatedAt: d.clock().UTC(),
	}
	if err := d.db.WithContext(ctx).Create(&subscription).Error; err != nil {
		return nil, err
	}
	return &subscription, nil
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
