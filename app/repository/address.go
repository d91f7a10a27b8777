package repository

import (
	"database/sql"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

// addressColumns selects one LEFT JOINed address row under the given alias.
func addressColumns(alias string) string {
	return alias + ".id, " + alias + ".first_name, " + alias + ".last_name, " + alias + ".company, " +
		alias + ".address1, " + alias + ".address2, " + alias + ".city, " + alias + ".state, " +
		alias + ".zipcode, " + alias + ".country, " + alias + ".phone"
}

type nullAddress struct {
	id        sql.NullInt64
	firstName sql.NullString
	lastName  sql.NullString
	company   sql.NullString
	address1  sql.NullString
	address2  sql.NullString
	city      sql.NullString
	state     sql.NullString
	zipcode   sql.NullString
	country   sql.NullString
	phone     sql.NullString
}

func (a *nullAddress) dest() []interface{} {
	return []interface{}{
		&a.id, &a.firstName, &a.lastName, &a.company, &a.address1, &a.address2,
		&a.city, &a.state, &a.zipcode, &a.country, &a.phone,
	}
}

func (a *nullAddress) toEntity() *entity.Address {
	if !a.id.Valid {
		return nil
	}
	return &entity.Address{
		ID:        uint64(a.id.Int64),
		FirstName: a.firstName.String,
		LastName:  a.lastName.String,
		Company:   a.company.String,
		Address1:  a.address1.String,
		Address2:  a.address2.String,
		City:      a.city.String,
		State:     a.state.String,
		Zipcode:   a.zipcode.String,
		Country:   a.country.String,
		Phone:     a.phone.String,
	}
}
