package source

import (
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/wonny/refdata/internal/contracts"
)

var validate = validator.New()

// Options configures a Source. Zero values take the defaults below.
type Options struct {
	ChunkSize  int    `default:"100" validate:"min=1"`
	DateFormat string `default:"20060102" validate:"required"`
	IDColumn   string `default:"S_INFO_WINDCODE" validate:"required"`
	DateColumn string `default:"TRADE_DT" validate:"required"`
	Tables     Tables
}

// Tables names the Wind-style tables read by a Source.
type Tables struct {
	StockDaily  string `default:"ashareeodprices" validate:"required"`
	IndexDaily  string `default:"aindexeodprices" validate:"required"`
	Dividend    string `default:"asharedividend" validate:"required"`
	RightIssue  string `default:"asharerightissue" validate:"required"`
	Calendar    string `default:"asharecalendar" validate:"required"`
	Description string `default:"asharedescription" validate:"required"`
	Suspension  string `default:"asharetradingsuspension" validate:"required"`
}

// CachedOptions configures the padding of a Cached source. Zero day counts
// take the defaults; set Unpadded to load exactly the requested window.
type CachedOptions struct {
	LookbackDays  int `default:"100" validate:"min=0"`
	LookaheadDays int `default:"1" validate:"min=0"`
	Unpadded      bool
}

func normalize(op string, opts interface{}) error {
	if err := defaults.Set(opts); err != nil {
		return contracts.Configuration(op, "apply defaults: %v", err)
	}
	if err := validate.Struct(opts); err != nil {
		return contracts.Configuration(op, "%v", err)
	}
	return nil
}
