package models

import "time"

// LabelRun records one label generation job.
type LabelRun struct {
	ID                int64     `json:"id" db:"id"`
	GamesPath         string    `json:"gamesPath" db:"games_path"`
	LabelsPath        string    `json:"labelsPath" db:"labels_path"`
	LabelsFingerprint string    `json:"labelsFingerprint" db:"labels_fingerprint"`
	TotalGames        int64     `json:"totalGames" db:"total_games"`
	TotalWins         int64     `json:"totalWins" db:"total_wins"`
	UniqueCards       int       `json:"uniqueCards" db:"unique_cards"`
	CardPairs         int       `json:"cardPairs" db:"card_pairs"`
	SkippedRecords    int       `json:"skippedRecords" db:"skipped_records"`
	LabelsWritten     int       `json:"labelsWritten" db:"labels_written"`
	MinBothPresent    int64     `json:"minBothPresent" db:"min_both_present"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}

// SynergyLabel is one stored label row.
type SynergyLabel struct {
	RunID    int64   `json:"runId" db:"run_id"`
	CardA    int64   `json:"cardA" db:"card_a"`
	CardB    int64   `json:"cardB" db:"card_b"`
	N11      int64   `json:"n11" db:"n11"`
	W11      int64   `json:"w11" db:"w11"`
	N10      int64   `json:"n10" db:"n10"`
	W10      int64   `json:"w10" db:"w10"`
	N01      int64   `json:"n01" db:"n01"`
	W01      int64   `json:"w01" db:"w01"`
	N00      int64   `json:"n00" db:"n00"`
	W00      int64   `json:"w00" db:"w00"`
	P11      float64 `json:"p11" db:"p11"`
	P10      float64 `json:"p10" db:"p10"`
	P01      float64 `json:"p01" db:"p01"`
	P00      float64 `json:"p00" db:"p00"`
	SynDelta float64 `json:"synDelta" db:"syn_delta"`
}

// Partner returns the other card of the pair, given one of them.
func (l *SynergyLabel) Partner(card int64) int64 {
	if l.CardA == card {
		return l.CardB
	}
	return l.CardA
}

// TrainingRun records one training job and the model it produced.
type TrainingRun struct {
	ID                string    `json:"id" db:"id"`
	LabelsPath        string    `json:"labelsPath" db:"labels_path"`
	LabelsFingerprint string    `json:"labelsFingerprint" db:"labels_fingerprint"`
	ModelPath         string    `json:"modelPath" db:"model_path"`
	EmbedDim          int       `json:"embedDim" db:"embed_dim"`
	LearningRate      float64   `json:"learningRate" db:"learning_rate"`
	L2Reg             float64   `json:"l2Reg" db:"l2_reg"`
	Epochs            int       `json:"epochs" db:"epochs"`
	Seed              int64     `json:"seed" db:"seed"`
	Samples           int       `json:"samples" db:"samples"`
	Cards             int       `json:"cards" db:"cards"`
	FinalMSE          float64   `json:"finalMse" db:"final_mse"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}
