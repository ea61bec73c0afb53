package worker

import (
	"context"
	"log"
	"time"

	"github.com/spcfox/sharetext/store"
)

type ViewUpdate struct {
	TextId int64
	Delta  int
}

// ViewBatcher coalesces per-text view increments in memory and flushes
// them to the store on a ticker, so a hot text does not turn every read
// into a write.
type ViewBatcher struct {
	UpdateCh           chan ViewUpdate
	shareTextStore     store.ShareTextStore
	tickerMilliseconds int
}

func NewViewBatcher(shareTextStore store.ShareTextStore, tickerMilliseconds int) *ViewBatcher {
	return &ViewBatcher{
		UpdateCh:           make(chan ViewUpdate, 1024),
		shareTextStore:     shareTextStore,
		tickerMilliseconds: tickerMilliseconds,
	}
}

func (b *ViewBatcher) Run(shutdownCtx context.Context) {
	ticker := time.NewTicker(time.Duration(b.tickerMilliseconds) * time.Millisecond)
	defer ticker.Stop()

	counts := make(map[int64]int)

	flush := func() {
		for textId, count := range counts {
			if count == 0 {
				continue
			}
			go func(id int64, c int) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := b.shareTextStore.IncrementTextViews(ctx, id, c); err != nil {
					log.Printf("Failed to update view count for text %d: %v", id, err)
				}
			}(textId, count)
		}
		counts = make(map[int64]int)
	}

	for {
		select {
		case update := <-b.UpdateCh:
			counts[update.TextId] += update.Delta

			if len(counts) >= 100 {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-shutdownCtx.Done():
			flush()
			return
		}
	}
}
