package storage

// Columns of the attendee table
const (
	ColEmail      Column = "Email"
	ColLastName   Column = "Lastname"
	ColCheckIn    Column = "Checkin"
	ColKey1       Column = "Key1"
	ColKey2       Column = "Key2"
	ColKey3       Column = "Key3"
	ColKey4       Column = "Key4"
	ColRedeem     Column = "Redeem"
	ColRedeemCode Column = "RedeemCode"
	ColCreatedAt  Column = "CreatedAt"
)

// Cell values for the boolean-like redeem column
const (
	True  = "TRUE"
	False = "FALSE"
)
