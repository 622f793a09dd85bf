package google

import (
	"context"
	"fmt"
	"strings"

	"citas/internal/domain"

	"google.golang.org/api/idtoken"
)

// IdentityService проверяет ID-токены Google и возвращает артефакт
// для префилла контактных данных формы.
type IdentityService struct {
	audience string
}

func NewIdentityService(audience string) *IdentityService {
	return &IdentityService{audience: audience}
}

// Verify валидирует токен из заголовка Authorization. Принимает как
// голый токен, так и форму "Bearer <token>".
func (s *IdentityService) Verify(ctx context.Context, bearer string) (domain.AuthArtifact, error) {
	token := strings.TrimSpace(strings.TrimPrefix(bearer, "Bearer"))
	if token == "" {
		return domain.AuthArtifact{}, fmt.Errorf("empty bearer token")
	}

	payload, err := idtoken.Validate(ctx, token, s.audience)
	if err != nil {
		return domain.AuthArtifact{}, fmt.Errorf("id token validation failed: %w", err)
	}

	return domain.AuthArtifact{
		IDToken:     token,
		UserID:      payload.Subject,
		DisplayName: claimString(payload.Claims, "name"),
		Email:       claimString(payload.Claims, "email"),
		PhotoURL:    claimString(payload.Claims, "picture"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
