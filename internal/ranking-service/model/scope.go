package model

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	scopeGlobal      = "GLOBAL"
	scopeGroupPrefix = "GROUP:"
)

// Scope é o universo de uma classificação: global ou um grupo.
// A forma serializada ("GLOBAL", "GROUP:<id>") é a chave do snapshot.
type Scope struct {
	groupID int64 // 0 = global
}

func GlobalScope() Scope { return Scope{} }

func GroupScope(groupID int64) Scope { return Scope{groupID: groupID} }

func (s Scope) IsGlobal() bool { return s.groupID == 0 }

// GroupID devolve o grupo e false para o escopo global
func (s Scope) GroupID() (int64, bool) {
	return s.groupID, s.groupID != 0
}

// Kind é usado como label de métricas
func (s Scope) Kind() string {
	if s.IsGlobal() {
		return "global"
	}
	return "group"
}

func (s Scope) String() string {
	if s.IsGlobal() {
		return scopeGlobal
	}
	return scopeGroupPrefix + strconv.FormatInt(s.groupID, 10)
}

// ParseScope aceita "GLOBAL" e "GROUP:<id>" (case-insensitive no prefixo)
func ParseScope(raw string) (Scope, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == scopeGlobal {
		return GlobalScope(), nil
	}
	if !strings.HasPrefix(v, scopeGroupPrefix) {
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(v, scopeGroupPrefix), 10, 64)
	if err != nil || id <= 0 {
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}
	return GroupScope(id), nil
}
