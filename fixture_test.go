package dbmap

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

type EmployeeStatus string

const (
	StatusActive   EmployeeStatus = "active"
	StatusInactive EmployeeStatus = "inactive"
	StatusRetired  EmployeeStatus = "retired"
)

func (s *EmployeeStatus) UnmarshalText(text []byte) error {
	switch v := EmployeeStatus(text); v {
	case StatusActive, StatusInactive, StatusRetired:
		*s = v
		return nil
	}
	return fmt.Errorf("unknown employee status %q", text)
}

func (s EmployeeStatus) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

type Employee struct {
	Id      uuid.UUID `db:"Id,key"`
	Name    string
	Age     int32
	Status  EmployeeStatus
	Note    null.String
	Salary  float64
	Created time.Time
}

func testEmployee() Employee {
	return Employee{
		Id:      uuid.MustParse("3fa85f64-5717-4562-b3fc-2c963f66afa6"),
		Name:    "ana",
		Age:     30,
		Status:  StatusActive,
		Note:    null.StringFrom("first hire"),
		Salary:  1250.5,
		Created: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func mustTableOf[T any]() TableDef {
	td, err := TableOf[T]()
	if err != nil {
		panic(err)
	}
	return td
}
