package contracts

import "context"

// RawDataSource loads the two raw inputs (S0)
// ⭐ SSOT: 원천 데이터 로딩 인터페이스
type RawDataSource interface {
	LoadDailyFactors(ctx context.Context) ([]DailyFactorRow, error)
	LoadMonthlyReturns(ctx context.Context) (*AssetReturnTable, error)
}

// RankModel scores one feature vector; higher ranks first
type RankModel interface {
	Name() string
	Score(features [NumFactors]float64) float64
}

// TrainingSet is the grouped training input of a ranking model
// Rows are sorted by (month, asset); Groups are consecutive row counts per month
type TrainingSet struct {
	Rows   []PanelRow
	Groups []int
}

// ModelTrainer fits a RankModel to a TrainingSet
// ⭐ SSOT: 모델 학습 인터페이스
type ModelTrainer interface {
	Train(ctx context.Context, set *TrainingSet) (RankModel, error)
}

// TopKRequest is the narrow query contract of the ranking service
type TopKRequest struct {
	K    int
	Bins int
	AsOf string // empty = latest available month
}

// Ranker serves Top-K queries
// ⭐ SSOT: Top-K 조회 인터페이스
type Ranker interface {
	TopK(ctx context.Context, req TopKRequest) (*TopKResult, error)
	Ready() bool
}
