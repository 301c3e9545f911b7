package marketplace

import (
	"github.com/Rrens/greenbite/internal/domain"
	"github.com/shopspring/decimal"
)

// State is everything the listing view renders from
type State struct {
	Listings []domain.Listing      `json:"listings"`
	Count    int                   `json:"count"`
	Loading  bool                  `json:"loading"`
	Error    *string               `json:"error"`
	Filters  domain.FilterCriteria `json:"filters"`
}

// InitialState is the state before any fetch has resolved
func InitialState() State {
	return State{Listings: []domain.Listing{}}
}

// ActionType names an action in logs
type ActionType string

const (
	ActionSetLoading   ActionType = "SET_LOADING"
	ActionSetListings  ActionType = "SET_LISTINGS"
	ActionSetError     ActionType = "SET_ERROR"
	ActionSetSearch    ActionType = "SET_SEARCH"
	ActionSetMinPrice  ActionType = "SET_MIN_PRICE"
	ActionSetMaxPrice  ActionType = "SET_MAX_PRICE"
	ActionSetFilters   ActionType = "SET_FILTERS"
	ActionResetFilters ActionType = "RESET_FILTERS"
)

// Action is the closed set of inputs to Reduce
type Action interface {
	Type() ActionType
	isAction()
}

type SetLoading struct{ Loading bool }

type SetListings struct {
	Results []domain.Listing
	Count   int
}

type SetError struct{ Message string }

type SetSearch struct{ Search string }

// SetMinPrice sets or, with a nil Value, clears the lower bound
type SetMinPrice struct{ Value *decimal.Decimal }

// SetMaxPrice sets or, with a nil Value, clears the upper bound
type SetMaxPrice struct{ Value *decimal.Decimal }

// SetFilters replaces every filter key at once
type SetFilters struct{ Filters domain.FilterCriteria }

type ResetFilters struct{}

func (SetLoading) Type() ActionType   { return ActionSetLoading }
func (SetListings) Type() ActionType  { return ActionSetListings }
func (SetError) Type() ActionType     { return ActionSetError }
func (SetSearch) Type() ActionType    { return ActionSetSearch }
func (SetMinPrice) Type() ActionType  { return ActionSetMinPrice }
func (SetMaxPrice) Type() ActionType  { return ActionSetMaxPrice }
func (SetFilters) Type() ActionType   { return ActionSetFilters }
func (ResetFilters) Type() ActionType { return ActionResetFilters }

func (SetLoading) isAction()   {}
func (SetListings) isAction()  {}
func (SetError) isAction()     {}
func (SetSearch) isAction()    {}
func (SetMinPrice) isAction()  {}
func (SetMaxPrice) isAction()  {}
func (SetFilters) isAction()   {}
func (ResetFilters) isAction() {}

// IsFilterAction reports whether a changes the filter criteria
func IsFilterAction(a Action) bool {
	switch a.(type) {
	case SetSearch, SetMinPrice, SetMaxPrice, SetFilters, ResetFilters:
		return true
	}
	return false
}

// Reduce is the pure transition function. It never performs I/O and never
// aliases slices or pointers from its inputs into the returned state.
func Reduce(state State, action Action) State {
	next := state
	next.Filters = state.Filters.Clone()

	switch a := action.(type) {
	case SetLoading:
		next.Loading = a.Loading

	case SetListings:
		listings := make([]domain.Listing, len(a.Results))
		copy(listings, a.Results)
		next.Listings = listings
		next.Count = a.Count
		next.Loading = false
		next.Error = nil

	case SetError:
		msg := a.Message
		next.Error = &msg
		next.Loading = false

	case SetSearch:
		next.Filters.Search = a.Search

	case SetMinPrice:
		next.Filters.MinPrice = copyDecimal(a.Value)

	case SetMaxPrice:
		next.Filters.MaxPrice = copyDecimal(a.Value)

	case SetFilters:
		next.Filters = a.Filters.Clone()

	case ResetFilters:
		next.Filters = domain.FilterCriteria{}
	}

	return next
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
