// Package favorites holds the selection and pinned-assets state of a dashboard
// session. Transitions are pure (Reduce); Store serializes them for concurrent use.
package favorites

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/sedna-dashboard/internal/types"
)

// State is the full selection and favorites state of one session
type State struct {
	Selection types.Selection       `json:"selection"`
	Favorites []types.FavoriteEntry `json:"favorites"`
	Capacity  int                   `json:"capacity"`
}

// ActionKind enumerates the transitions Reduce understands
type ActionKind int

const (
	ActionSelect ActionKind = iota
	ActionToggle
	ActionRemove
	ActionResize
)

// Action is a single state transition request
type Action struct {
	Kind      ActionKind
	Selection types.Selection // ActionSelect
	Asset     types.Asset     // ActionToggle
	ID        string          // ActionRemove
	Width     int             // ActionResize
}

// SelectAction builds an ActionSelect
func SelectAction(sel types.Selection) Action {
	return Action{Kind: ActionSelect, Selection: sel}
}

// ToggleAction builds an ActionToggle
func ToggleAction(asset types.Asset) Action {
	return Action{Kind: ActionToggle, Asset: asset}
}

// RemoveAction builds an ActionRemove
func RemoveAction(id string) Action {
	return Action{Kind: ActionRemove, ID: id}
}

// ResizeAction builds an ActionResize
func ResizeAction(width int) Action {
	return Action{Kind: ActionResize, Width: width}
}

// DefaultSelection is shown until the user picks an asset
func DefaultSelection() types.Selection {
	return types.Selection{
		Name:   "Bitcoin",
		Symbol: "BTC",
		Price:  decimal.RequireFromString("64230.50"),
		Image:  "https://assets.coingecko.com/coins/images/1/large/bitcoin.png",
	}
}

// DefaultFavorites is the seed list of a new session
func DefaultFavorites() []types.FavoriteEntry {
	return []types.FavoriteEntry{
		{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Price: decimal.RequireFromString("64230.50"), Change: decimal.RequireFromString("2.4"), IsUp: true, Image: "https://assets.coingecko.com/coins/images/1/large/bitcoin.png"},
		{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", Price: decimal.RequireFromString("3450.12"), Change: decimal.RequireFromString("-1.2"), IsUp: false, Image: "https://assets.coingecko.com/coins/images/279/large/ethereum.png"},
		{ID: "solana", Symbol: "SOL", Name: "Solana", Price: decimal.RequireFromString("145.60"), Change: decimal.RequireFromString("5.8"), IsUp: true, Image: "https://assets.coingecko.com/coins/images/4128/large/solana.png"},
		{ID: "cardano", Symbol: "ADA", Name: "Cardano", Price: decimal.RequireFromString("0.45"), Change: decimal.RequireFromString("0.5"), IsUp: true, Image: "https://assets.coingecko.com/coins/images/975/large/cardano.png"},
	}
}

// InitialState returns the state of a freshly created session
func InitialState() State {
	return State{
		Selection: DefaultSelection(),
		Favorites: DefaultFavorites(),
		Capacity:  MaxCapacity,
	}
}

// EntryFromAsset projects an asset into a fresh favorites entry
func EntryFromAsset(a types.Asset) types.FavoriteEntry {
	return types.FavoriteEntry{
		ID:     a.ID,
		Symbol: strings.ToUpper(a.Symbol),
		Name:   a.Name,
		Price:  a.CurrentPrice,
		Change: a.PriceChangePercentage24h,
		IsUp:   a.IsUp(),
		Image:  a.Image,
	}
}

// SelectionFromAsset projects an asset into a selection
func SelectionFromAsset(a types.Asset) types.Selection {
	return types.Selection{
		Name:   a.Name,
		Symbol: a.Symbol,
		Price:  a.CurrentPrice,
		Image:  a.Image,
	}
}

// AssetFromEntry rebuilds the asset fields a favorites entry was projected from
func AssetFromEntry(e types.FavoriteEntry) types.Asset {
	return types.Asset{
		ID:                       e.ID,
		Symbol:                   e.Symbol,
		Name:                     e.Name,
		Image:                    e.Image,
		CurrentPrice:             e.Price,
		PriceChangePercentage24h: e.Change,
	}
}

// pinnable reports whether a carries every field an entry needs
func pinnable(a types.Asset) bool {
	return a.ID != "" && a.Symbol != "" && a.Name != "" && a.CurrentPrice.IsPositive()
}

// Entry returns the pinned entry for id
func (s State) Entry(id string) (types.FavoriteEntry, bool) {
	if i := indexOf(s.Favorites, id); i >= 0 {
		return s.Favorites[i], true
	}
	return types.FavoriteEntry{}, false
}

// Contains reports whether id is pinned
func (s State) Contains(id string) bool {
	return indexOf(s.Favorites, id) >= 0
}

// IDs returns the pinned identifiers in order
func (s State) IDs() []string {
	ids := make([]string, len(s.Favorites))
	for i, f := range s.Favorites {
		ids[i] = f.ID
	}
	return ids
}

// Reduce applies a to s and returns the next state. s is never modified.
func Reduce(s State, a Action) State {
	next := s.clone()

	switch a.Kind {
	case ActionSelect:
		next.Selection = a.Selection

	case ActionToggle:
		if i := indexOf(next.Favorites, a.Asset.ID); i >= 0 {
			next.Favorites = append(next.Favorites[:i], next.Favorites[i+1:]...)
			break
		}
		// Soft cap: existing entries above a shrunk capacity are kept, new ones refused.
		if len(next.Favorites) < next.Capacity && pinnable(a.Asset) {
			next.Favorites = append(next.Favorites, EntryFromAsset(a.Asset))
		}

	case ActionRemove:
		if i := indexOf(next.Favorites, a.ID); i >= 0 {
			next.Favorites = append(next.Favorites[:i], next.Favorites[i+1:]...)
		}

	case ActionResize:
		next.Capacity = CapacityForWidth(a.Width)
	}

	return next
}

func (s State) clone() State {
	favs := make([]types.FavoriteEntry, len(s.Favorites))
	copy(favs, s.Favorites)
	s.Favorites = favs
	return s
}

func indexOf(favs []types.FavoriteEntry, id string) int {
	for i, f := range favs {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// ToggleOutcome reports what a toggle did
type ToggleOutcome string

const (
	OutcomeAdded   ToggleOutcome = "added"
	OutcomeRemoved ToggleOutcome = "removed"
	OutcomeIgnored ToggleOutcome = "ignored" // capacity reached or incomplete asset
)

// Store is a session's state container, safe for concurrent use
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore creates a store holding InitialState
func NewStore() *Store {
	return NewStoreWithState(InitialState())
}

// NewStoreWithState creates a store holding s
func NewStoreWithState(s State) *Store {
	return &Store{state: s.clone()}
}

// State returns a copy of the current state
func (st *Store) State() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.clone()
}

// Dispatch applies a and returns the resulting state
func (st *Store) Dispatch(a Action) State {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = Reduce(st.state, a)
	return st.state.clone()
}

// SelectAsset replaces the selection
func (st *Store) SelectAsset(sel types.Selection) State {
	return st.Dispatch(SelectAction(sel))
}

// ToggleFavorite pins or unpins asset
func (st *Store) ToggleFavorite(asset types.Asset) (State, ToggleOutcome) {
	st.mu.Lock()
	defer st.mu.Unlock()

	before := st.state.Contains(asset.ID)
	st.state = Reduce(st.state, ToggleAction(asset))
	after := st.state.Contains(asset.ID)

	outcome := OutcomeIgnored
	switch {
	case before && !after:
		outcome = OutcomeRemoved
	case !before && after:
		outcome = OutcomeAdded
	}
	return st.state.clone(), outcome
}

// RemoveFavorite unpins id if present
func (st *Store) RemoveFavorite(id string) State {
	return st.Dispatch(RemoveAction(id))
}

// Resize recomputes the capacity for a viewport width
func (st *Store) Resize(width int) State {
	return st.Dispatch(ResizeAction(width))
}
