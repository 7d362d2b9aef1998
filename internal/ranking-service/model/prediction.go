package model

import "time"

// Explanation é o detalhamento fixo da pontuação de um palpite
type Explanation struct {
	Exact   bool `json:"exact"`
	Result  bool `json:"result"`
	Balance bool `json:"balance"`
}

type Prediction struct {
	ID            int64
	UserID        int64
	MatchID       int64
	GroupID       *int64 // nil = palpite global
	HomePred      int
	AwayPred      int
	AdvanceTeam   string
	PointsAwarded int
	Explanation   Explanation
	IsLocked      bool
	LockedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Scope devolve o escopo ao qual o palpite pertence
func (p Prediction) Scope() Scope {
	if p.GroupID == nil {
		return GlobalScope()
	}
	return GroupScope(*p.GroupID)
}

// PredictionInput é o que o usuário envia ao criar/editar um palpite
type PredictionInput struct {
	MatchID     int64
	GroupID     *int64
	HomePred    int
	AwayPred    int
	AdvanceTeam string
}

func (in PredictionInput) Validate() error {
	if in.MatchID <= 0 || in.HomePred < 0 || in.AwayPred < 0 {
		return ErrInvalidPrediction
	}
	if in.GroupID != nil && *in.GroupID <= 0 {
		return ErrInvalidPrediction
	}
	if len(in.AdvanceTeam) > 100 {
		return ErrInvalidPrediction
	}
	return nil
}

// ScoredPrediction é o resultado do recálculo gravado de volta no palpite
type ScoredPrediction struct {
	PredictionID int64
	Points       int
	Explanation  Explanation
}

// User e Group pertencem a camadas fora do ranking; aqui só o que a classificação lê
type User struct {
	ID        int64
	Name      string
	AvatarURL string
}

type Group struct {
	ID   int64
	Name string
}

// UserPrediction é um palpite acompanhado da partida, para "meus palpites"
type UserPrediction struct {
	Prediction Prediction
	Match      Match
}

// MatchPrediction é a visão pública dos palpites de uma partida dentro de um escopo
type MatchPrediction struct {
	UserID   int64
	UserName string
	HomePred int
	AwayPred int
	Points   int
}

// PredictionFilter restringe a listagem de palpites do usuário
type PredictionFilter struct {
	MatchID *int64
	GroupID *int64
	Limit   int
	Offset  int
}
