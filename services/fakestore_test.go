package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NiranjanBhat123/what-connects/models"
	"github.com/NiranjanBhat123/what-connects/store"
)

// memStore is an in-memory Store for coordinator tests. It mirrors the
// uniqueness constraints the real schema enforces and hands out defensive
// copies of rooms and games the way preloaded reads do.
type memStore struct {
	mu sync.Mutex

	players     map[uuid.UUID]*models.Player
	rooms       map[uuid.UUID]*models.Room
	memberships map[uuid.UUID]*models.RoomMembership
	games       map[uuid.UUID]*models.Game
	questions   map[uuid.UUID]*models.Question
	scores      map[uuid.UUID]*models.GameScore
	answers     map[uuid.UUID]*models.Answer

	clock time.Time
}

func newMemStore() *memStore {
	return &memStore{
		players:     make(map[uuid.UUID]*models.Player),
		rooms:       make(map[uuid.UUID]*models.Room),
		memberships: make(map[uuid.UUID]*models.RoomMembership),
		games:       make(map[uuid.UUID]*models.Game),
		questions:   make(map[uuid.UUID]*models.Question),
		scores:      make(map[uuid.UUID]*models.GameScore),
		answers:     make(map[uuid.UUID]*models.Answer),
		clock:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// Transaction runs fn against the same store. Test scenarios fail before
// any write happens, so rollback fidelity is not needed here.
func (m *memStore) Transaction(fn func(store.Store) error) error {
	return fn(m)
}

func (m *memStore) CreatePlayer(p *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = m.tick()
	if p.LastActive.IsZero() {
		p.LastActive = p.CreatedAt
	}
	m.players[p.ID] = p
	return nil
}

func (m *memStore) GetPlayer(id uuid.UUID) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (m *memStore) TouchPlayer(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[id]; ok {
		p.LastActive = m.tick()
	}
	return nil
}

func (m *memStore) DeleteInactivePlayers(cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inRoom := make(map[uuid.UUID]bool)
	for _, mem := range m.memberships {
		inRoom[mem.PlayerID] = true
	}
	var n int64
	for id, p := range m.players {
		if p.LastActive.Before(cutoff) && !inRoom[id] {
			delete(m.players, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateRoom(r *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Code == "" {
		r.Code = models.GenerateRoomCode()
	}
	if r.Status == "" {
		r.Status = models.RoomWaiting
	}
	if r.MaxPlayers == 0 {
		r.MaxPlayers = 6
	}
	for _, existing := range m.rooms {
		if existing.Code == r.Code {
			return store.ErrDuplicate
		}
	}
	r.CreatedAt = m.tick()
	m.rooms[r.ID] = r
	return nil
}

func (m *memStore) GetRoomByCode(code string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code = strings.ToUpper(code)
	for _, r := range m.rooms {
		if r.Code == code {
			cp := *r
			cp.Players = m.roomMembershipsLocked(r.ID)
			if host, ok := m.players[r.HostID]; ok {
				cp.Host = *host
			}
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) roomMembershipsLocked(roomID uuid.UUID) []models.RoomMembership {
	var out []models.RoomMembership
	for _, mem := range m.memberships {
		if mem.RoomID != roomID {
			continue
		}
		cp := *mem
		if p, ok := m.players[mem.PlayerID]; ok {
			cp.Player = *p
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *memStore) UpdateRoom(r *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rooms[r.ID]
	if !ok {
		return store.ErrNotFound
	}
	stored.Name = r.Name
	stored.HostID = r.HostID
	stored.Status = r.Status
	stored.MaxPlayers = r.MaxPlayers
	stored.UpdatedAt = m.tick()
	return nil
}

func (m *memStore) DeleteRoom(roomID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return store.ErrNotFound
	}
	for id, g := range m.games {
		if g.RoomID != roomID {
			continue
		}
		for qid, q := range m.questions {
			if q.GameID == id {
				for aid, a := range m.answers {
					if a.QuestionID == qid {
						delete(m.answers, aid)
					}
				}
				delete(m.questions, qid)
			}
		}
		for sid, s := range m.scores {
			if s.GameID == id {
				delete(m.scores, sid)
			}
		}
		delete(m.games, id)
	}
	for id, mem := range m.memberships {
		if mem.RoomID == roomID {
			delete(m.memberships, id)
		}
	}
	delete(m.rooms, roomID)
	return nil
}

func (m *memStore) DeleteCompletedRoomsBefore(cutoff time.Time) (int64, error) {
	m.mu.Lock()
	var ids []uuid.UUID
	for id, r := range m.rooms {
		if r.Status == models.RoomCompleted && r.UpdatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()
	for _, id := range ids {
		if err := m.DeleteRoom(id); err != nil {
			return 0, err
		}
	}
	return int64(len(ids)), nil
}

func (m *memStore) CreateMembership(mem *models.RoomMembership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.memberships {
		if existing.RoomID == mem.RoomID && existing.PlayerID == mem.PlayerID {
			return store.ErrDuplicate
		}
	}
	if mem.ID == uuid.Nil {
		mem.ID = uuid.New()
	}
	if mem.State == "" {
		mem.State = models.MemberJoined
	}
	mem.CreatedAt = m.tick()
	m.memberships[mem.ID] = mem
	return nil
}

func (m *memStore) GetMembership(roomID, playerID uuid.UUID) (*models.RoomMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.memberships {
		if mem.RoomID == roomID && mem.PlayerID == playerID {
			cp := *mem
			if p, ok := m.players[playerID]; ok {
				cp.Player = *p
			}
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UpdateMembership(mem *models.RoomMembership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.memberships[mem.ID]
	if !ok {
		return store.ErrNotFound
	}
	stored.IsReady = mem.IsReady
	stored.State = mem.State
	stored.Score = mem.Score
	return nil
}

func (m *memStore) DeleteMembership(roomID, playerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, mem := range m.memberships {
		if mem.RoomID == roomID && mem.PlayerID == playerID {
			delete(m.memberships, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) CreateGame(g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.Status == "" {
		g.Status = models.GameActive
	}
	g.CreatedAt = m.tick()
	if g.StartedAt.IsZero() {
		g.StartedAt = g.CreatedAt
	}
	m.games[g.ID] = g
	return nil
}

func (m *memStore) gameCopyLocked(g *models.Game) *models.Game {
	cp := *g
	var qs []models.Question
	for _, q := range m.questions {
		if q.GameID == g.ID {
			qs = append(qs, *q)
		}
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	cp.Questions = qs
	return &cp
}

func (m *memStore) GetActiveGame(roomID uuid.UUID) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Game
	for _, g := range m.games {
		if g.RoomID == roomID && g.Status == models.GameActive {
			if latest == nil || g.CreatedAt.After(latest.CreatedAt) {
				latest = g
			}
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return m.gameCopyLocked(latest), nil
}

func (m *memStore) GetLatestGame(roomID uuid.UUID) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Game
	for _, g := range m.games {
		if g.RoomID == roomID {
			if latest == nil || g.CreatedAt.After(latest.CreatedAt) {
				latest = g
			}
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return m.gameCopyLocked(latest), nil
}

func (m *memStore) UpdateGame(g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.games[g.ID]
	if !ok {
		return store.ErrNotFound
	}
	stored.Status = g.Status
	stored.CurrentQuestionIndex = g.CurrentQuestionIndex
	stored.CompletedAt = g.CompletedAt
	return nil
}

func (m *memStore) CreateQuestions(qs []models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range qs {
		if qs[i].ID == uuid.Nil {
			qs[i].ID = uuid.New()
		}
		qs[i].CreatedAt = m.tick()
		cp := qs[i]
		m.questions[cp.ID] = &cp
	}
	return nil
}

func (m *memStore) CreateGameScore(s *models.GameScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.scores {
		if existing.GameID == s.GameID && existing.PlayerID == s.PlayerID {
			return store.ErrDuplicate
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = m.tick()
	m.scores[s.ID] = s
	return nil
}

func (m *memStore) GetGameScore(gameID, playerID uuid.UUID) (*models.GameScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.scores {
		if s.GameID == gameID && s.PlayerID == playerID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListGameScores(gameID uuid.UUID) ([]models.GameScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.GameScore
	for _, s := range m.scores {
		if s.GameID != gameID {
			continue
		}
		cp := *s
		if p, ok := m.players[s.PlayerID]; ok {
			cp.Player = *p
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) UpdateGameScore(s *models.GameScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.scores[s.ID]
	if !ok {
		return store.ErrNotFound
	}
	stored.TotalScore = s.TotalScore
	stored.CorrectCount = s.CorrectCount
	stored.WrongCount = s.WrongCount
	stored.Rank = s.Rank
	return nil
}

func (m *memStore) CreateAnswer(a *models.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.answers {
		if existing.QuestionID == a.QuestionID && existing.PlayerID == a.PlayerID {
			return store.ErrDuplicate
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = m.tick()
	m.answers[a.ID] = a
	return nil
}

func (m *memStore) GetAnswer(questionID, playerID uuid.UUID) (*models.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.answers {
		if a.QuestionID == questionID && a.PlayerID == playerID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}
