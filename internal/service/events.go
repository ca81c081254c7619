package service

import (
	"context"
	"log"

	"github.com/inngest/inngestgo"
)

const (
	EventPlanRequested = "plan/requested"
	EventPlanCreated   = "plan/created"
)

type PlanEventSender interface {
	SendPlanCreated(ctx context.Context, userID, weekStart string) error
}

type EventPublisher struct {
	client inngestgo.Client
}

func NewEventPublisher() (*EventPublisher, error) {
	client, err := inngestgo.NewClient(inngestgo.ClientOpts{
		AppID: "nutriplan-api",
	})
	if err != nil {
		return nil, err
	}
	return &EventPublisher{client: client}, nil
}

func (p *EventPublisher) SendPlanRequested(ctx context.Context, userID, weekStart string, force bool) error {
	return p.send(ctx, EventPlanRequested, map[string]any{
		"user_id":    userID,
		"week_start": weekStart,
		"force":      force,
	})
}

func (p *EventPublisher) SendPlanCreated(ctx context.Context, userID, weekStart string) error {
	return p.send(ctx, EventPlanCreated, map[string]any{
		"user_id":    userID,
		"week_start": weekStart,
	})
}

func (p *EventPublisher) send(ctx context.Context, name string, data map[string]any) error {
	if p == nil || p.client == nil {
		return nil
	}
	if _, err := p.client.Send(ctx, inngestgo.Event{Name: name, Data: data}); err != nil {
		log.Printf("send %s: %v", name, err)
		return err
	}
	return nil
}
