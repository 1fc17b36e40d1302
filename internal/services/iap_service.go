package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/awa/go-iap/appstore"
	"google.golang.org/api/androidpublisher/v3"

	"github.com/ituby/GenieAI-sub000/internal/models"
	"github.com/ituby/GenieAI-sub000/internal/repositories"
)

// appleVerifier and googleVerifier are the slices of go-iap this service
// uses, extracted so tests can fake the store backends.
type appleVerifier interface {
	Verify(ctx context.Context, req appstore.IAPRequest, result interface{}) error
}

type googleVerifier interface {
	VerifyProduct(ctx context.Context, packageName, productID, token string) (*androidpublisher.ProductPurchase, error)
	VerifySubscription(ctx context.Context, packageName, subscriptionID, token string) (*androidpublisher.SubscriptionPurchase, error)
}

type IAPConfig struct {
	AppleSharedSecret string
	AppleBundleID     string
	GooglePackageName string

	// TokenProducts maps a consumable product id to the tokens it grants.
	TokenProducts         map[string]int
	SubscriptionProductID string
}

// IAPService implements the validate-receipt function: verify the receipt
// with the platform store, record the transaction idempotently and apply the
// entitlement (token credit or subscription activation) exactly once.
//
// Bad receipts return valid=false with a 200; the client finalizes the
// platform transaction regardless, so a hard error here would only strand it
// in the pending queue.
type IAPService struct {
	Apple  appleVerifier
	Google googleVerifier
	Config IAPConfig

	PurchaseRepo *repositories.PurchaseRepository
	SubRepo      *repositories.SubscriptionRepository
	UserRepo     *repositories.UserRepository
	Tokens       *TokenService
	Notifier     *NotificationService
}

func (s *IAPService) ValidateReceipt(ctx context.Context, userID int, req models.ValidateReceiptRequest) (models.ValidateReceiptResponse, error) {
	if strings.TrimSpace(req.TransactionID) == "" {
		return models.ValidateReceiptResponse{Valid: false, Message: "transaction_id is required"}, nil
	}

	valid, err := s.verify(ctx, req)
	if err != nil {
		// A verification error is not a verdict. Record nothing and report
		// invalid so the client can still finalize and retry later.
		log.Printf("iap: verify %s/%s: %v", req.Platform, req.TransactionID, err)
		return models.ValidateReceiptResponse{Valid: false, Message: "verification unavailable"}, nil
	}

	alreadyProcessed, err := s.PurchaseRepo.Save(ctx, models.PurchaseTransaction{
		UserID:        userID,
		Platform:      req.Platform,
		ProductID:     req.ProductID,
		TransactionID: req.TransactionID,
		Receipt:       req.Receipt,
		Valid:         valid,
	})
	if err != nil {
		return models.ValidateReceiptResponse{}, fmt.Errorf("record transaction: %w", err)
	}

	resp := models.ValidateReceiptResponse{Valid: valid, AlreadyProcessed: alreadyProcessed}
	if !valid || alreadyProcessed {
		return resp, nil
	}

	credited, err := s.applyEntitlement(ctx, userID, req)
	if err != nil {
		return models.ValidateReceiptResponse{}, err
	}
	resp.TokensCredited = credited
	return resp, nil
}

func (s *IAPService) verify(ctx context.Context, req models.ValidateReceiptRequest) (bool, error) {
	switch req.Platform {
	case models.PlatformIOS:
		return s.verifyApple(ctx, req)
	case models.PlatformAndroid:
		return s.verifyGoogle(ctx, req)
	default:
		return false, fmt.Errorf("unknown platform %q", req.Platform)
	}
}

func (s *IAPService) verifyApple(ctx context.Context, req models.ValidateReceiptRequest) (bool, error) {
	if s.Apple == nil {
		return false, errors.New("apple verifier is not configured")
	}

	resp := appstore.IAPResponse{}
	err := s.Apple.Verify(ctx, appstore.IAPRequest{
		ReceiptData:            req.Receipt,
		Password:               s.Config.AppleSharedSecret,
		ExcludeOldTransactions: true,
	}, &resp)
	if err != nil {
		return false, err
	}
	if err := appstore.HandleError(resp.Status); err != nil {
		log.Printf("iap: apple receipt rejected, status %d: %v", resp.Status, err)
		return false, nil
	}
	if s.Config.AppleBundleID != "" && resp.Receipt.BundleID != s.Config.AppleBundleID {
		log.Printf("iap: receipt bundle %q does not match %q", resp.Receipt.BundleID, s.Config.AppleBundleID)
		return false, nil
	}

	// The transaction the client observed must appear in the receipt.
	for _, inApp := range resp.Receipt.InApp {
		if inApp.TransactionID == req.TransactionID && inApp.ProductID == req.ProductID {
			return true, nil
		}
	}
	for _, inApp := range resp.LatestReceiptInfo {
		if inApp.TransactionID == req.TransactionID && inApp.ProductID == req.ProductID {
			return true, nil
		}
	}
	return false, nil
}

func (s *IAPService) verifyGoogle(ctx context.Context, req models.ValidateReceiptRequest) (bool, error) {
	if s.Google == nil {
		return false, errors.New("google verifier is not configured")
	}

	if req.ProductID == s.Config.SubscriptionProductID {
		sub, err := s.Google.VerifySubscription(ctx, s.Config.GooglePackageName, req.ProductID, req.Receipt)
		if err != nil {
			return false, err
		}
		expiry := time.UnixMilli(sub.ExpiryTimeMillis)
		return expiry.After(time.Now()), nil
	}

	product, err := s.Google.VerifyProduct(ctx, s.Config.GooglePackageName, req.ProductID, req.Receipt)
	if err != nil {
		return false, err
	}
	// 0 = purchased; 1 = canceled; 2 = pending
	return product.PurchaseState == 0, nil
}

func (s *IAPService) applyEntitlement(ctx context.Context, userID int, req models.ValidateReceiptRequest) (int, error) {
	if tokens, ok := s.Config.TokenProducts[req.ProductID]; ok {
		// Credit through the token service so the cached balance drops
		// immediately; the app refetches right after a purchase settles.
		if err := s.Tokens.Credit(ctx, userID, tokens, models.TokenEntryPurchase, req.TransactionID); err != nil {
			return 0, fmt.Errorf("credit tokens: %w", err)
		}
		if s.Notifier != nil {
			s.Notifier.SendToUser(ctx, userID, "Tokens added",
				fmt.Sprintf("%d tokens were added to your balance.", tokens), "/tokens")
		}
		return tokens, nil
	}

	if req.ProductID == s.Config.SubscriptionProductID {
		if err := s.activateSubscription(ctx, userID, req); err != nil {
			return 0, err
		}
		return 0, nil
	}

	log.Printf("iap: product %q carries no entitlement, recorded only", req.ProductID)
	return 0, nil
}

func (s *IAPService) activateSubscription(ctx context.Context, userID int, req models.ValidateReceiptRequest) error {
	expiresAt := time.Now().AddDate(0, 1, 0)
	if req.Platform == models.PlatformAndroid && s.Google != nil {
		if sub, err := s.Google.VerifySubscription(ctx, s.Config.GooglePackageName, req.ProductID, req.Receipt); err == nil && sub.ExpiryTimeMillis > 0 {
			expiresAt = time.UnixMilli(sub.ExpiryTimeMillis)
		}
	}

	if err := s.SubRepo.Upsert(ctx, models.Subscription{
		UserID:    userID,
		Platform:  req.Platform,
		ProductID: req.ProductID,
		Status:    models.SubscriptionStatusActive,
		ExpiresAt: expiresAt,
	}); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	if err := s.UserRepo.SetPremium(ctx, userID, true); err != nil {
		return fmt.Errorf("set premium: %w", err)
	}
	if s.Notifier != nil {
		s.Notifier.SendToUser(ctx, userID, "Welcome to Premium",
			"Your subscription is active. Daily limits are lifted.", "/premium")
	}
	return nil
}
