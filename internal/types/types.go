// README: Common value types shared across modules.
package types

// ID is an opaque entity identifier (hex, assigned by the creating flow).
type ID string

// Money is an amount in minor units of Currency.
type Money struct {
	Amount   int64
	Currency string
}
