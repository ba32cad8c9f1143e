package engine

import (
	"stock_go/internal/domain"
)

// MaxInstruments is the fixed BookTable capacity.
const MaxInstruments = domain.MaxInstruments

// BookTable holds exactly MaxInstruments books, addressed by slot index.
// It is allocated once and never resized.
type BookTable struct {
	books [MaxInstruments]InstrumentBook
}

// NewBookTable creates every book at version 0.
func NewBookTable() *BookTable {
	t := &BookTable{}
	for i := range t.books {
		t.books[i].init(i)
	}
	return t
}

// Book returns the book for instrumentID, or an InvalidOrderError when out of range.
func (t *BookTable) Book(instrumentID int) (*InstrumentBook, error) {
	if err := checkInstrument(instrumentID); err != nil {
		return nil, err
	}
	return &t.books[instrumentID], nil
}

func checkInstrument(instrumentID int) error {
	if instrumentID < 0 || instrumentID >= MaxInstruments {
		return domain.NewInvalidOrderError("instrument",
			"id %d outside [0,%d)", instrumentID, MaxInstruments)
	}
	return nil
}

// forEach visits every book in slot order until fn returns false.
func (t *BookTable) forEach(fn func(b *InstrumentBook) bool) {
	for i := range t.books {
		if !fn(&t.books[i]) {
			return
		}
	}
}
