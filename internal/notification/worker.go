package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"clinic-call-backend/internal/model"
)

// PushTitle is the notification title shown on subscribed devices.
const PushTitle = "Chamada de Pacientes"

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of the store the worker pool needs.
type SubscriptionStore interface {
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	ID    int64  `json:"id"`
}

// WorkerPool manages a pool of workers for sending call notifications.
type WorkerPool struct {
	size     int
	jobs     chan model.Call
	store    SubscriptionStore
	webpush  *webpush.Options
	sender   NotificationSender
	template string
}

// NewWorkerPool creates a new worker pool. template renders the body of every
// notification (see model.Call.Phrase).
func NewWorkerPool(size int, store SubscriptionStore, webpushOptions *webpush.Options, template string) *WorkerPool {
	return &WorkerPool{
		size:     size,
		jobs:     make(chan model.Call, size*4),
		store:    store,
		webpush:  webpushOptions,
		sender:   &WebPushSender{},
		template: template,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Push worker %d started", id)
	for {
		select {
		case call := <-wp.jobs:
			log.Printf("Push worker %d processing call %d", id, call.ID)
			wp.sendNotificationsForCall(ctx, call)
		case <-ctx.Done():
			log.Printf("Push worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a call for delivery. It never blocks: when the queue is
// full the call is dropped and logged.
func (wp *WorkerPool) Dispatch(call model.Call) bool {
	select {
	case wp.jobs <- call:
		return true
	default:
		log.Printf("Push queue full, dropping notification for call %d", call.ID)
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan model.Call {
	return wp.jobs
}

// PublishCall implements Publisher.
func (wp *WorkerPool) PublishCall(call model.Call) {
	wp.Dispatch(call)
}

// PublishVideo implements Publisher. Video changes are not pushed.
func (wp *WorkerPool) PublishVideo(*string) {}

func (wp *WorkerPool) sendNotificationsForCall(ctx context.Context, call model.Call) {
	subscriptions, err := wp.store.ListSubscriptions(ctx)
	if err != nil {
		log.Printf("Error fetching subscriptions for call %d: %v", call.ID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(pushPayload{
		Title: PushTitle,
		Body:  call.Phrase(wp.template),
		ID:    call.ID,
	})
	if err != nil {
		log.Printf("Error encoding notification for call %d: %v", call.ID, err)
		return
	}

	log.Printf("Sending %d notifications for call %d", len(subscriptions), call.ID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
