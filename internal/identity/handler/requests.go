package handler

import (
	"github.com/asaskevich/govalidator"

	dErrors "signet/pkg/domain-errors"
)

type registerRequest struct {
	Email     string `json:"email" valid:"email,required"`
	Password  string `json:"password" valid:"required,stringlength(8|128)"`
	FirstName string `json:"first_name" valid:"-"`
	LastName  string `json:"last_name" valid:"-"`
}

func (r registerRequest) validate() error {
	if _, err := govalidator.ValidateStruct(r); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, err.Error())
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email" valid:"email,required"`
	Password string `json:"password" valid:"required"`
}

func (r loginRequest) validate() error {
	if _, err := govalidator.ValidateStruct(r); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, err.Error())
	}
	return nil
}
