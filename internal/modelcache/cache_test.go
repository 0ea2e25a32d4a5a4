package modelcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ffrank/internal/contracts"
	"github.com/wonny/ffrank/internal/ltr"
	"github.com/wonny/ffrank/internal/metrics"
	"github.com/wonny/ffrank/pkg/logger"
)

// firstFeatureModel scores by the MKT exposure
type firstFeatureModel struct{}

func (firstFeatureModel) Name() string { return "first-feature" }

func (firstFeatureModel) Score(f [contracts.NumFactors]float64) float64 { return f[0] }

// countingTrainer records every training set it sees
type countingTrainer struct {
	mu    sync.Mutex
	calls int32
	sets  []*contracts.TrainingSet
	delay time.Duration
	err   error
}

func (t *countingTrainer) Train(ctx context.Context, set *contracts.TrainingSet) (contracts.RankModel, error) {
	atomic.AddInt32(&t.calls, 1)
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	t.mu.Lock()
	t.sets = append(t.sets, set)
	t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	return firstFeatureModel{}, nil
}

func (t *countingTrainer) count() int {
	return int(atomic.LoadInt32(&t.calls))
}

// testPanel builds months x assets rows with alternating-sign labels
func testPanel(months int) *contracts.Panel {
	assets := []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF"}
	start := contracts.NewMonth(2020, time.January)
	rows := make([]contracts.PanelRow, 0, months*len(assets))
	for m := 0; m < months; m++ {
		for j, a := range assets {
			y := float64(j-2) / 100
			if m%2 == 1 {
				y = -y
			}
			rows = append(rows, contracts.PanelRow{
				Month:    start.AddMonths(m),
				Asset:    a,
				Features: [contracts.NumFactors]float64{float64(j), float64(m), 0.1 * float64(j), 1, -float64(j)},
				Y:        y,
			})
		}
	}
	return &contracts.Panel{Rows: rows}
}

func newCache(t *testing.T, trainer contracts.ModelTrainer) *Cache {
	t.Helper()
	c := New(trainer, logger.NewNop(), nil)
	require.NoError(t, c.SetPanel(testPanel(4)))
	return c
}

func TestGetOrTrain_NotReady(t *testing.T) {
	c := New(&countingTrainer{}, logger.NewNop(), nil)

	_, err := c.GetOrTrain(context.Background(), 5, contracts.NewMonth(2020, time.March))
	assert.ErrorIs(t, err, contracts.ErrNotReady)
	assert.False(t, c.Ready())

	_, err = c.Variant(context.Background(), 5)
	assert.ErrorIs(t, err, contracts.ErrNotReady)
}

func TestGetOrTrain_TrainsOnceThenHits(t *testing.T) {
	trainer := &countingTrainer{}
	c := newCache(t, trainer)
	month := contracts.NewMonth(2020, time.March)

	first, err := c.GetOrTrain(context.Background(), 5, month)
	require.NoError(t, err)
	second, err := c.GetOrTrain(context.Background(), 5, month)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, trainer.count())
	assert.Equal(t, 12, first.TrainRows)
	assert.Equal(t, 2, first.TrainMonths)

	// 다른 B는 별도 모델
	_, err = c.GetOrTrain(context.Background(), 3, month)
	require.NoError(t, err)
	assert.Equal(t, 2, trainer.count())
	assert.Equal(t, []int{3, 5}, c.Stats().Variants)
	assert.Equal(t, 2, c.Stats().Models)
}

func TestGetOrTrain_NoLeakage(t *testing.T) {
	trainer := &countingTrainer{}
	c := newCache(t, trainer)
	asOf := contracts.NewMonth(2020, time.April)

	_, err := c.GetOrTrain(context.Background(), 5, asOf)
	require.NoError(t, err)

	require.Len(t, trainer.sets, 1)
	set := trainer.sets[0]
	for _, row := range set.Rows {
		assert.True(t, row.Month.Before(asOf), "row %s leaks into model for %s", row.Month, asOf)
	}
	assert.Equal(t, []int{6, 6, 6}, set.Groups)
}

func TestGetOrTrain_FirstMonthInsufficientHistory(t *testing.T) {
	trainer := &countingTrainer{}
	c := newCache(t, trainer)

	_, err := c.GetOrTrain(context.Background(), 5, contracts.NewMonth(2020, time.January))
	assert.ErrorIs(t, err, contracts.ErrInsufficientHistory)
	assert.True(t, contracts.IsValidation(err))
	assert.Equal(t, 0, trainer.count())
}

func TestGetOrTrain_ConcurrentCallersTrainOnce(t *testing.T) {
	trainer := &countingTrainer{delay: 50 * time.Millisecond}
	c := newCache(t, trainer)
	month := contracts.NewMonth(2020, time.April)

	const callers = 16
	results := make([]*CachedModel, callers)
	errs := make([]error, callers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = c.GetOrTrain(context.Background(), 5, month)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, 1, trainer.count())
}

// gateTrainer blocks until release is closed or its context ends
type gateTrainer struct {
	entered chan struct{}
	release chan struct{}
	calls   int32
}

func (t *gateTrainer) Train(ctx context.Context, set *contracts.TrainingSet) (contracts.RankModel, error) {
	if atomic.AddInt32(&t.calls, 1) == 1 {
		close(t.entered)
	}
	select {
	case <-t.release:
		return firstFeatureModel{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestGetOrTrain_CancelledCallerDoesNotFailOthers(t *testing.T) {
	trainer := &gateTrainer{entered: make(chan struct{}), release: make(chan struct{})}
	c := newCache(t, trainer)
	month := contracts.NewMonth(2020, time.April)

	// 1. 첫 호출자가 학습 시작 후 취소
	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrTrain(firstCtx, 5, month)
		firstErr <- err
	}()
	<-trainer.entered

	// 2. 살아있는 ctx 로 같은 키 대기
	type result struct {
		model *CachedModel
		err   error
	}
	second := make(chan result, 1)
	go func() {
		m, err := c.GetOrTrain(context.Background(), 5, month)
		second <- result{m, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(trainer.release)
	res := <-second
	require.NoError(t, res.err)
	require.NotNil(t, res.model)

	// 3. 결과는 캐시되어 재학습 없음
	again, err := c.GetOrTrain(context.Background(), 5, month)
	require.NoError(t, err)
	assert.Same(t, res.model, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&trainer.calls))
}

func TestGetOrTrain_CancelledBeforeStart(t *testing.T) {
	trainer := &countingTrainer{}
	c := newCache(t, trainer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetOrTrain(ctx, 5, contracts.NewMonth(2020, time.April))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, trainer.count())
}

func TestGetOrTrain_TrainerErrorNotCached(t *testing.T) {
	trainer := &countingTrainer{err: errors.New("boom")}
	c := newCache(t, trainer)
	month := contracts.NewMonth(2020, time.March)

	_, err := c.GetOrTrain(context.Background(), 5, month)
	require.Error(t, err)
	_, err = c.GetOrTrain(context.Background(), 5, month)
	require.Error(t, err)

	assert.Equal(t, 2, trainer.count())
	assert.Equal(t, 0, c.Stats().Models)
}

func TestGetOrTrain_InvalidBins(t *testing.T) {
	c := newCache(t, &countingTrainer{})

	_, err := c.GetOrTrain(context.Background(), 2, contracts.NewMonth(2020, time.March))
	assert.ErrorIs(t, err, contracts.ErrInvalidBins)
}

func TestVariant_CachedAndInputUntouched(t *testing.T) {
	c := newCache(t, &countingTrainer{})
	base, err := c.Panel()
	require.NoError(t, err)

	v1, err := c.Variant(context.Background(), 5)
	require.NoError(t, err)
	v2, err := c.Variant(context.Background(), 5)
	require.NoError(t, err)

	assert.Same(t, v1, v2)
	assert.Equal(t, 5, v1.Bins)
	for _, row := range base.Rows {
		assert.Equal(t, 0, row.Grade)
	}
}

func TestSetPanel_InvalidatesModels(t *testing.T) {
	trainer := &countingTrainer{}
	c := newCache(t, trainer)
	month := contracts.NewMonth(2020, time.March)

	_, err := c.GetOrTrain(context.Background(), 5, month)
	require.NoError(t, err)
	fp := c.Fingerprint()

	require.NoError(t, c.SetPanel(testPanel(5)))
	assert.NotEqual(t, fp, c.Fingerprint())
	assert.Equal(t, 0, c.Stats().Models)

	_, err = c.GetOrTrain(context.Background(), 5, month)
	require.NoError(t, err)
	assert.Equal(t, 2, trainer.count())
}

func TestWarmup(t *testing.T) {
	trainer := &countingTrainer{}
	c := newCache(t, trainer)

	require.NoError(t, c.Warmup(context.Background(), 5, 4))

	assert.Equal(t, 2, trainer.count())
	assert.Equal(t, []int{4, 5}, c.Stats().Variants)

	// 두 번째 호출은 캐시 적중
	require.NoError(t, c.Warmup(context.Background(), 5))
	assert.Equal(t, 2, trainer.count())
}

func TestWarmup_SingleMonthSkips(t *testing.T) {
	trainer := &countingTrainer{}
	c := New(trainer, logger.NewNop(), nil)
	require.NoError(t, c.SetPanel(testPanel(1)))

	require.NoError(t, c.Warmup(context.Background(), 5))
	assert.Equal(t, 0, trainer.count())
}

func TestClose(t *testing.T) {
	c := newCache(t, &countingTrainer{})
	c.Close()
	c.Close()

	assert.False(t, c.Ready())
	_, err := c.GetOrTrain(context.Background(), 5, contracts.NewMonth(2020, time.March))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.SetPanel(testPanel(2)), ErrClosed)
}

func TestGetOrTrain_WithBoostedTrainer(t *testing.T) {
	params := ltr.DefaultParams()
	params.NEstimators = 10
	trainer, err := ltr.NewTrainer(params)
	require.NoError(t, err)

	c := New(trainer, logger.NewNop(), metrics.New(prometheus.NewRegistry()))
	require.NoError(t, c.SetPanel(testPanel(4)))

	cached, err := c.GetOrTrain(context.Background(), 5, contracts.NewMonth(2020, time.April))
	require.NoError(t, err)
	assert.Equal(t, ltr.ModelName, cached.Model.Name())
	assert.Equal(t, 18, cached.TrainRows)
}
