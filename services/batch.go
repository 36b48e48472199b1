package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"partsync/models"
	"partsync/spreadsheet"
)

// PriceLookup resolves an item name to a catalog price
type PriceLookup interface {
	Lookup(ctx context.Context, name string) models.PriceResult
}

// ProgressSink receives batch progress events
type ProgressSink interface {
	Publish(event models.Event)
}

// Processor runs items through the lookup one at a time
type Processor struct {
	lookup PriceLookup
	sink   ProgressSink
	delay  time.Duration
}

// NewProcessor creates a processor. sink may be nil; delay is the pause
// between consecutive lookups.
func NewProcessor(lookup PriceLookup, sink ProgressSink, delay time.Duration) *Processor {
	return &Processor{lookup: lookup, sink: sink, delay: delay}
}

// Run looks up every item of sheet and applies updated prices to it.
// It stops before the next item once the task is cancelled or ctx ends.
func (p *Processor) Run(ctx context.Context, task *models.BatchTask, sheet *spreadsheet.Sheet) *models.BatchResult {
	items := sheet.Items()
	result := &models.BatchResult{Summary: models.Summary{Total: len(items)}}
	task.SetTotal(len(items))

	log.Info().Str("task_id", task.ID).Int("items", len(items)).Msg("Processing items")

	for i, item := range items {
		if task.Cancelled() || ctx.Err() != nil {
			result.Cancelled = true
			log.Info().Str("task_id", task.ID).Int("processed", i).Msg("Batch cancelled")
			break
		}

		if i > 0 && !p.pause(ctx, task) {
			result.Cancelled = true
			break
		}

		task.Begin(i, item)
		log.Info().Msgf("[%d/%d] Processing: %s", i+1, len(items), item.Name)
		p.publish(models.EventItemProcessing, models.ItemProcessing{
			ItemCode:     item.Code,
			ItemName:     item.Name,
			CurrentPrice: item.CurrentPrice,
			Index:        i + 1,
			Total:        len(items),
		})

		outcome := Classify(item, p.lookup.Lookup(ctx, item.Name))
		if outcome.Kind == models.OutcomeUpdated {
			if err := sheet.SetPrice(item.Row, outcome.NewPrice); err != nil {
				log.Error().Err(err).Str("item", item.Code).Msg("Failed to apply price")
			}
		}

		result.Record(outcome)
		task.Record(outcome.Kind)

		p.publish(eventFor(outcome.Kind), outcome)
		p.publish(models.EventStatusUpdate, task.Snapshot())
	}

	// a cancel during the last lookup still counts
	if task.Cancelled() || ctx.Err() != nil {
		result.Cancelled = true
	}
	return result
}

// pause waits the inter-item delay. It returns false if the batch was
// stopped meanwhile.
func (p *Processor) pause(ctx context.Context, task *models.BatchTask) bool {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		}
	}
	return !task.Cancelled()
}

func (p *Processor) publish(eventType string, data interface{}) {
	if p.sink == nil {
		return
	}
	p.sink.Publish(models.Event{Type: eventType, Data: data})
}

func eventFor(kind models.OutcomeKind) string {
	switch kind {
	case models.OutcomeUpdated:
		return models.EventItemUpdated
	case models.OutcomeUnchanged:
		return models.EventItemUnchanged
	default:
		return models.EventItemError
	}
}
