package models

// DisplayAs tells whether an account is a top-level category or a subcategory
type DisplayAs string

const (
	DisplayAsCategory    DisplayAs = "category"
	DisplayAsSubcategory DisplayAs = "subcategory"
)

// Account is one entry of the chart of accounts. Subcategories reference
// their category through ParentCode; nesting never goes deeper than that.
type Account struct {
	Base
	Code         string    `gorm:"uniqueIndex;not null" json:"account_code"`
	Name         string    `gorm:"not null" json:"account_name"`
	ParentCode   *string   `gorm:"index" json:"parent_code,omitempty"`
	DisplayAs    DisplayAs `gorm:"not null" json:"display_as"`
	Description  string    `json:"description,omitempty"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	DisplayOrder int       `gorm:"default:0" json:"display_order"`
}

// IsSubcategory reports whether the account hangs under a category.
func (a *Account) IsSubcategory() bool {
	return a.DisplayAs == DisplayAsSubcategory
}

// Parent returns the parent code or an empty string.
func (a *Account) Parent() string {
	if a.ParentCode == nil {
		return ""
	}
	return *a.ParentCode
}
