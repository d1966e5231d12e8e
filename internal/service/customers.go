package service

import (
	"context"
	"database/sql"
	"errors"

	"taskflow/internal/repo"
)

type Customers struct {
	base
}

type CreateCustomerInput struct {
	Name  string
	Email string
}

// UpdateCustomerInput carries partial-update fields; empty means "not
// supplied" and leaves the stored value untouched.
type UpdateCustomerInput struct {
	Name   string
	Email  string
	Status string
}

func (s Customers) Create(ctx context.Context, in CreateCustomerInput) (CustomerResponse, error) {
	var out CustomerResponse
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := s.repo.CreateCustomer(ctx, tx, in.Name, in.Email, s.timestamp())
		if err != nil {
			return err
		}
		out = customerResponse(c)
		return nil
	})
	if err != nil {
		return CustomerResponse{}, s.classify("create_customer", err)
	}
	s.log.Info().Str("customer_key", out.CustomerKey).Msg("customer created")
	return out, nil
}

func (s Customers) Get(ctx context.Context, customerKey string) (CustomerResponse, error) {
	var out CustomerResponse
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := s.repo.GetCustomerByKey(ctx, tx, customerKey)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFoundError{Entity: "Customer"}
		}
		if err != nil {
			return err
		}
		out = customerResponse(c)
		return nil
	})
	if err != nil {
		return CustomerResponse{}, s.classify("get_customer", err)
	}
	return out, nil
}

func (s Customers) Update(ctx context.Context, customerKey string, in UpdateCustomerInput) (CustomerResponse, error) {
	var out CustomerResponse
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := s.repo.GetCustomerByKey(ctx, tx, customerKey)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFoundError{Entity: "Customer"}
		}
		if err != nil {
			return err
		}
		updated, err := s.repo.UpdateCustomer(ctx, tx, c, repo.CustomerUpdate{
			Name:   in.Name,
			Email:  in.Email,
			Status: in.Status,
		}, s.timestamp())
		if err != nil {
			return err
		}
		out = customerResponse(updated)
		return nil
	})
	if err != nil {
		return CustomerResponse{}, s.classify("update_customer", err)
	}
	s.log.Info().Str("customer_key", customerKey).Msg("customer updated")
	return out, nil
}
