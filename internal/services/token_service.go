package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ituby/GenieAI-sub000/internal/models"
	"github.com/ituby/GenieAI-sub000/internal/repositories"
)

const balanceCacheTTL = 5 * time.Minute

// TokenService fronts the token ledger with a short-lived redis cache. The
// cache is invalidated on every mutation; stale reads last at most the TTL.
type TokenService struct {
	Repo  *repositories.TokenRepository
	Redis *redis.Client
}

func (s *TokenService) Balance(ctx context.Context, userID int) (int, error) {
	key := balanceKey(userID)
	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, key).Result(); err == nil {
			if balance, convErr := strconv.Atoi(cached); convErr == nil {
				return balance, nil
			}
		}
	}

	balance, err := s.Repo.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.cache(ctx, key, balance)
	return balance, nil
}

func (s *TokenService) Credit(ctx context.Context, userID, amount int, kind, reference string) error {
	if err := s.Repo.Credit(ctx, userID, amount, kind, reference); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *TokenService) Debit(ctx context.Context, userID, amount int, kind, reference string) error {
	if err := s.Repo.Debit(ctx, userID, amount, kind, reference); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *TokenService) History(ctx context.Context, userID, limit int) ([]models.TokenLedgerEntry, error) {
	return s.Repo.ListLedger(ctx, userID, limit)
}

func (s *TokenService) cache(ctx context.Context, key string, balance int) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Set(ctx, key, strconv.Itoa(balance), balanceCacheTTL).Err(); err != nil {
		log.Printf("tokens: cache balance: %v", err)
	}
}

func (s *TokenService) invalidate(ctx context.Context, userID int) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, balanceKey(userID)).Err(); err != nil {
		log.Printf("tokens: invalidate balance cache: %v", err)
	}
}

func balanceKey(userID int) string {
	return fmt.Sprintf("genie:balance:%d", userID)
}
