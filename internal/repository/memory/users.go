package memory

import (
	"context"

	"inventory-ledger/internal/domain"
	"inventory-ledger/internal/repository"

	"github.com/google/uuid"
)

type userRepository struct{ access }

func (r *userRepository) conflict(st *state, u *domain.User) error {
	for id, existing := range st.users {
		if id == u.ID {
			continue
		}
		if existing.Email == u.Email {
			return repository.ErrUserAlreadyExists
		}
		if existing.Username == u.Username {
			return repository.ErrUsernameTaken
		}
	}
	return nil
}

func (r *userRepository) Create(_ context.Context, u *domain.User) error {
	return r.write(func(st *state) error {
		if err := r.conflict(st, u); err != nil {
			return err
		}
		st.users[u.ID] = *u
		return nil
	})
}

func (r *userRepository) Update(_ context.Context, u *domain.User) error {
	return r.write(func(st *state) error {
		existing, ok := st.users[u.ID]
		if !ok {
			return repository.ErrUserNotFound
		}
		if err := r.conflict(st, u); err != nil {
			return err
		}
		existing.Username = u.Username
		existing.Name = u.Name
		existing.Bio = u.Bio
		existing.UpdatedAt = u.UpdatedAt
		st.users[u.ID] = existing
		return nil
	})
}

func (r *userRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.read(func(st *state) error {
		for _, u := range st.users {
			if u.Email == email {
				u := u
				out = &u
				return nil
			}
		}
		return repository.ErrUserNotFound
	})
	return out, err
}

func (r *userRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	var out *domain.User
	err := r.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

type refreshTokenRepository struct{ access }

func (r *refreshTokenRepository) Create(_ context.Context, t *domain.RefreshToken) error {
	return r.write(func(st *state) error {
		st.tokens[t.Token] = *t
		return nil
	})
}

func (r *refreshTokenRepository) FindByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	var out *domain.RefreshToken
	err := r.read(func(st *state) error {
		t, ok := st.tokens[token]
		if !ok {
			return repository.ErrRefreshTokenNotFound
		}
		if t.Revoked {
			return repository.ErrRefreshTokenRevoked
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *refreshTokenRepository) Revoke(_ context.Context, token string) error {
	return r.write(func(st *state) error {
		t, ok := st.tokens[token]
		if !ok {
			return repository.ErrRefreshTokenNotFound
		}
		t.Revoked = true
		st.tokens[token] = t
		return nil
	})
}
