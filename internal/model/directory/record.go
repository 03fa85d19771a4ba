package directory

// UserRecord is one directory entry as returned by the users endpoint.
type UserRecord struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Website  string  `json:"website"`
	Address  Address `json:"address"`
	Company  Company `json:"company"`
}

// Address is the postal part of a UserRecord.
type Address struct {
	Street  string `json:"street"`
	Suite   string `json:"suite"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
}

// Company describes the employer of a UserRecord. The upstream field for
// BusinessSlogan is called "bs".
type Company struct {
	Name           string `json:"name"`
	CatchPhrase    string `json:"catchPhrase"`
	BusinessSlogan string `json:"bs"`
}

// Clone returns a copy of records that does not share a backing array.
func Clone(records []UserRecord) []UserRecord {
	out := make([]UserRecord, len(records))
	copy(out, records)
	return out
}
