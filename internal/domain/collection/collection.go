package collection

import (
	"fmt"
	"iter"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxNameLen        = 128
	maxDescriptionLen = 4096
)

// DataType is the particle schema family a collection holds.
type DataType string

const (
	// DataTypeATOFMS is aerosol time-of-flight mass spectrometry data.
	DataTypeATOFMS DataType = "ATOFMS"
	// DataTypeAMS is aerosol mass spectrometer data.
	DataTypeAMS DataType = "AMS"
	// DataTypeGeneric is any other sparse spectral data.
	DataTypeGeneric DataType = "generic"
)

// IsValid checks if the data type is supported.
func (t DataType) IsValid() bool {
	return t == DataTypeATOFMS || t == DataTypeAMS || t == DataTypeGeneric
}

// Collection is a named group of particles, optionally a child of another collection
// (immutable value object). Membership lives in the registry, not here.
type Collection struct {
	id          int64
	name        string
	description string
	dataType    DataType
	parentID    int64
	createdAt   int64
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("collection name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return fmt.Errorf("collection name too long (max %d)", maxNameLen)
	}
	return nil
}

// New validates and creates a Collection that has not been persisted yet (ID 0).
// parentID 0 means a root collection.
func New(name, description string, dataType DataType, parentID int64) (Collection, error) {
	if dataType == "" {
		dataType = DataTypeGeneric
	}
	if !dataType.IsValid() {
		return Collection{}, fmt.Errorf("invalid data type: %q", dataType)
	}
	if err := validateName(name); err != nil {
		return Collection{}, err
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return Collection{}, fmt.Errorf("collection description too long (max %d)", maxDescriptionLen)
	}
	if parentID < 0 {
		return Collection{}, fmt.Errorf("parent id must not be negative")
	}

	return Collection{
		name:        name,
		description: description,
		dataType:    dataType,
		parentID:    parentID,
		createdAt:   time.Now().UnixMilli(),
	}, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(id int64, name, description string, dataType DataType, parentID, createdAt int64) Collection {
	if dataType == "" {
		dataType = DataTypeGeneric
	}
	return Collection{
		id:          id,
		name:        name,
		description: description,
		dataType:    dataType,
		parentID:    parentID,
		createdAt:   createdAt,
	}
}

// ID returns the registry identifier (0 before persistence).
func (c Collection) ID() int64 { return c.id }

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Description returns the free-form description.
func (c Collection) Description() string { return c.description }

// DataType returns the particle schema family.
func (c Collection) DataType() DataType { return c.dataType }

// ParentID returns the parent collection id, 0 for roots.
func (c Collection) ParentID() int64 { return c.parentID }

// IsRoot reports whether the collection has no parent.
func (c Collection) IsRoot() bool { return c.parentID == 0 }

// CreatedAt returns the creation timestamp (unix millis).
func (c Collection) CreatedAt() int64 { return c.createdAt }

// ChildOf derives an unsaved child collection of c with the same data type.
func (c Collection) ChildOf(name, description string) (Collection, error) {
	return New(name, description, c.dataType, c.id)
}

// Draft pairs an unsaved collection with its members in iteration order.
type Draft struct {
	Collection Collection
	Members    iter.Seq[int64]
}
