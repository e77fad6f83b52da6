package tokenauth

import (
	"context"

	"github.com/MrEthical07/tokenauth/internal/flows"
)

// Register creates a principal. The email is normalized before the duplicate check and
// the password is hashed with the Engine's hasher. Client authentication follows the
// same rule as [Engine.Login].
//
// Register does not log the new principal in.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*PrincipalView, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	rec, err := flows.RunRegister(ctx, flows.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
	}, e.flows.Register)
	if err != nil {
		return nil, err
	}

	return &PrincipalView{
		ID:        rec.ID,
		Name:      rec.Name,
		Email:     rec.Email,
		CreatedAt: rec.CreatedAt,
	}, nil
}
