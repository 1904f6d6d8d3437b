package progress

import (
	"context"
	"fmt"
	"time"
)

type sinkFunc func(context.Context, []Event) error

func (f sinkFunc) Consume(ctx context.Context, batch []Event) error {
	return f(ctx, batch)
}

func (sinkFunc) Close(context.Context) error {
	return nil
}

// ExampleHub routes status lines losslessly and hit counts on a best-effort
// basis.
func ExampleHub() {
	var lines []string
	hits := 0
	hub := NewHub(Config{},
		Route{Name: "lines", Delivery: Lossless, Sink: sinkFunc(func(_ context.Context, batch []Event) error {
			for _, evt := range batch {
				lines = append(lines, evt.message())
			}
			return nil
		})},
		Route{Name: "hits", Delivery: BestEffort, Sink: sinkFunc(func(_ context.Context, batch []Event) error {
			for _, evt := range batch {
				if evt.Stage == StageHit {
					hits++
				}
			}
			return nil
		})},
	)

	ts := time.Unix(0, 0)
	hub.Emit(Event{RunID: "run-1", TS: ts, Stage: StageFetchDone, URL: "https://example.com/list", Count: 42})
	hub.Emit(Event{RunID: "run-1", TS: ts, Stage: StageHit, Keyword: "특가", Title: "오늘의 특가 모음"})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	for _, line := range lines {
		fmt.Println(line)
	}
	fmt.Printf("hits: %d\n", hits)
	// Output:
	// fetched 42 candidates from https://example.com/list in 0s
	// hit [특가] 오늘의 특가 모음
	// hits: 1
}
