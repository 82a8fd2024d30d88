package domain

// Stored attribute names. The table is keyed on AttrCustomerID.
const (
	AttrCustomerID      = "customerId"
	AttrFirstName       = "firstName"
	AttrLastName        = "lastName"
	AttrEmail           = "email"
	AttrUserName        = "userName"
	AttrBirthDate       = "birthDate"
	AttrGender          = "gender"
	AttrPhoneNumber     = "phoneNumber"
	AttrCreatedDate     = "createdDate"
	AttrUpdatedDate     = "updatedDate"
	AttrProfilePhotoURL = "profilePhotoUrl"
	AttrAddress         = "address"
)

// Keys of the nested address map.
const (
	AddrLine1   = "address_1"
	AddrLine2   = "address_2"
	AddrCity    = "city"
	AddrState   = "state"
	AddrCountry = "country"
	AddrZipcode = "zipcode"
)

// AddressKeys lists the address map keys in their wire order.
var AddressKeys = []string{AddrLine1, AddrLine2, AddrCity, AddrState, AddrCountry, AddrZipcode}

// NeverUpdated is the updatedDate of a customer that has not been updated since creation.
const NeverUpdated = "1900-01-01T00:00:00.000000"

// TimestampLayout formats createdDate/updatedDate with microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Address is the optional nested address sub-object, keyed by AddressKeys.
type Address map[string]string

// Customer is the wire representation of a stored customer.
// Address is omitted when nil and rendered as {} when empty.
type Customer struct {
	CustomerID      string  `json:"customerId"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	Email           string  `json:"email"`
	UserName        string  `json:"userName"`
	BirthDate       string  `json:"birthDate"`
	Gender          string  `json:"gender"`
	PhoneNumber     string  `json:"phoneNumber"`
	CreatedDate     string  `json:"createdDate"`
	UpdatedDate     string  `json:"updatedDate"`
	ProfilePhotoURL string  `json:"profilePhotoUrl"`
	Address         Address `json:"address,omitzero"`
}

// CreateCustomerRequest is the POST /customers payload.
// Fields are pointers so a missing field can be told apart from an empty one.
type CreateCustomerRequest struct {
	CustomerID      *string `json:"customerId"`
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	Email           *string `json:"email"`
	UserName        *string `json:"userName"`
	BirthDate       *string `json:"birthDate"`
	Gender          *string `json:"gender"`
	PhoneNumber     *string `json:"phoneNumber"`
	ProfilePhotoURL *string `json:"profilePhotoUrl"`
}

// UpdateCustomerRequest is the PUT /customers/:id payload. The address is flattened
// on the wire and nested on write.
type UpdateCustomerRequest struct {
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	Email           *string `json:"email"`
	UserName        *string `json:"userName"`
	BirthDate       *string `json:"birthDate"`
	Gender          *string `json:"gender"`
	PhoneNumber     *string `json:"phoneNumber"`
	ProfilePhotoURL *string `json:"profilePhotoUrl"`
	Address1        *string `json:"address1"`
	Address2        *string `json:"address2"`
	City            *string `json:"city"`
	Region          *string `json:"region"`
	Country         *string `json:"country"`
	ZipCode         *string `json:"zipCode"`
}
