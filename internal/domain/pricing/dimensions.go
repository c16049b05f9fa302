package pricing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LengthUnit is the unit width and height are measured in.
type LengthUnit string

const (
	LengthUnitInch       LengthUnit = "in"
	LengthUnitFoot       LengthUnit = "ft"
	LengthUnitCentimeter LengthUnit = "cm"
	LengthUnitMillimeter LengthUnit = "mm"
	LengthUnitMeter      LengthUnit = "m"
)

// SizePlaces is the precision a converted area is rounded to before it is
// compared with a rule's bounds and priced.
const SizePlaces = 4

// metres per length unit
var lengthFactors = map[LengthUnit]decimal.Decimal{
	LengthUnitInch:       decimal.RequireFromString("0.0254"),
	LengthUnitFoot:       decimal.RequireFromString("0.3048"),
	LengthUnitCentimeter: decimal.RequireFromString("0.01"),
	LengthUnitMillimeter: decimal.RequireFromString("0.001"),
	LengthUnitMeter:      decimal.NewFromInt(1),
}

// square metres per area unit
var areaFactors = map[catalog.AreaUnit]decimal.Decimal{
	catalog.AreaUnitSqM:  decimal.NewFromInt(1),
	catalog.AreaUnitSqFt: decimal.RequireFromString("0.09290304"),
	catalog.AreaUnitSqIn: decimal.RequireFromString("0.00064516"),
}

// IsValid checks if the length unit is supported
func (u LengthUnit) IsValid() bool {
	_, ok := lengthFactors[u]
	return ok
}

// Dimensions is the printed size of a dimension item.
type Dimensions struct {
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
	Unit   LengthUnit      `json:"unit"`
}

// Validate checks that both sides are positive and the unit is known.
func (d Dimensions) Validate() error {
	if !d.Width.IsPositive() || !d.Height.IsPositive() {
		return shared.NewValidationError("INVALID_DIMENSIONS", "Width and height must be positive").
			WithDetail("width", d.Width.String()).
			WithDetail("height", d.Height.String())
	}
	if !d.Unit.IsValid() {
		return shared.NewValidationError("INVALID_DIMENSIONS",
			fmt.Sprintf("unsupported length unit %q (use in, ft, cm, mm or m)", d.Unit))
	}
	return nil
}

// AreaIn returns width × height expressed in unit, rounded to SizePlaces.
func (d Dimensions) AreaIn(unit catalog.AreaUnit) (decimal.Decimal, error) {
	if err := d.Validate(); err != nil {
		return decimal.Zero, err
	}
	target, ok := areaFactors[unit]
	if !ok {
		return decimal.Zero, shared.NewConfigurationError("INVALID_AREA_UNIT",
			fmt.Sprintf("unsupported area unit %q", unit))
	}
	linear := lengthFactors[d.Unit]
	squareMetres := d.Width.Mul(d.Height).Mul(linear).Mul(linear)
	return squareMetres.Div(target).Round(SizePlaces), nil
}

// Value implements driver.Valuer for the JSONB column
func (d Dimensions) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for the JSONB column
func (d *Dimensions) Scan(value interface{}) error {
	if value == nil {
		*d = Dimensions{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Dimensions: unsupported type")
	}
	if len(bytes) == 0 {
		*d = Dimensions{}
		return nil
	}
	return json.Unmarshal(bytes, d)
}
