package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Schlüssel, unter denen die Zugangsdaten gesucht werden.
const (
	KeyServiceAccount     = "GCP_SERVICE_ACCOUNT"
	KeyServiceAccountJSON = "GCP_SERVICE_ACCOUNT_JSON"
	KeyEmailSender        = "EMAIL_SENDER"
	KeyEmailPass          = "EMAIL_PASS"
)

// SecretSource liefert einzelne Geheimnisse nach Schlüssel.
type SecretSource interface {
	Name() string
	// Lookup gibt found=false zurück, wenn die Quelle den Schlüssel nicht kennt.
	Lookup(ctx context.Context, key string) (value string, found bool, err error)
}

// Credentials sind die aufgelösten Zugangsdaten für Sheets und E-Mail.
type Credentials struct {
	ServiceAccountJSON  []byte
	ServiceAccountEmail string
	EmailSender         string
	EmailPassword       string

	// Sources merkt sich pro Schlüssel, aus welcher Quelle der Wert kam.
	Sources map[string]string
	// Problems sammelt Fehler, die ein Feature deaktivieren, aber nicht den Prozess.
	Problems []string
}

// SheetsEnabled meldet, ob ein gültiger Service-Account vorliegt.
func (c Credentials) SheetsEnabled() bool {
	return len(c.ServiceAccountJSON) > 0
}

// MailEnabled meldet, ob Absender und Passwort vorliegen.
func (c Credentials) MailEnabled() bool {
	return c.EmailSender != "" && c.EmailPassword != ""
}

// ResolveCredentials durchsucht die Quellen in der angegebenen Reihenfolge; der erste Treffer gewinnt.
// Fehlende Werte sind kein Fehler, sondern landen in Problems.
func ResolveCredentials(ctx context.Context, sources ...SecretSource) Credentials {
	creds := Credentials{Sources: map[string]string{}}

	raw, src := creds.lookup(ctx, sources, KeyServiceAccount, KeyServiceAccountJSON)
	if raw == "" {
		creds.Problems = append(creds.Problems, "no GCP service account found in secret store or environment")
	} else {
		account, email, err := NormalizeServiceAccount(raw)
		if err != nil {
			creds.Problems = append(creds.Problems, fmt.Sprintf("service account from %s: %v", src, err))
		} else {
			creds.ServiceAccountJSON = account
			creds.ServiceAccountEmail = email
		}
	}

	creds.EmailSender, _ = creds.lookup(ctx, sources, KeyEmailSender)
	creds.EmailPassword, _ = creds.lookup(ctx, sources, KeyEmailPass)
	if !creds.MailEnabled() {
		creds.Problems = append(creds.Problems, "email credentials not found")
	}
	return creds
}

func (c *Credentials) lookup(ctx context.Context, sources []SecretSource, keys ...string) (string, string) {
	for _, s := range sources {
		for _, key := range keys {
			v, ok, err := s.Lookup(ctx, key)
			if err != nil {
				c.Problems = append(c.Problems, fmt.Sprintf("%s lookup %s: %v", s.Name(), key, err))
				break
			}
			if ok && strings.TrimSpace(v) != "" {
				c.Sources[key] = s.Name()
				return v, s.Name()
			}
		}
	}
	return "", ""
}

// NormalizeServiceAccount prüft das Service-Account-JSON und repariert doppelt escapte Zeilenumbrüche im private_key.
// Akzeptiert sowohl ein JSON-Objekt als auch einen JSON-String, der das Objekt enthält.
func NormalizeServiceAccount(raw string) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	if !gjson.Valid(raw) {
		return nil, "", errors.New("not valid JSON")
	}
	if parsed := gjson.Parse(raw); parsed.Type == gjson.String {
		raw = strings.TrimSpace(parsed.String())
		if !gjson.Valid(raw) {
			return nil, "", errors.New("embedded value is not valid JSON")
		}
	}
	if !gjson.Parse(raw).IsObject() {
		return nil, "", errors.New("expected a JSON object")
	}

	email := gjson.Get(raw, "client_email").String()
	if email == "" {
		return nil, "", errors.New("client_email missing")
	}
	if gjson.Get(raw, "private_key").String() == "" {
		return nil, "", errors.New("private_key missing")
	}

	raw = strings.ReplaceAll(raw, `\\n`, `\n`)
	return []byte(raw), email, nil
}

// EnvSource liest aus der Prozessumgebung (inklusive .env via godotenv in Load).
type EnvSource struct{}

func (EnvSource) Name() string { return "environment" }

func (EnvSource) Lookup(_ context.Context, key string) (string, bool, error) {
	v, ok := os.LookupEnv(key)
	return v, ok, nil
}

// MapSource ist eine statische Quelle, z.B. für Tests.
type MapSource struct {
	Label  string
	Values map[string]string
}

func (m MapSource) Name() string {
	if m.Label == "" {
		return "map"
	}
	return m.Label
}

func (m MapSource) Lookup(_ context.Context, key string) (string, bool, error) {
	v, ok := m.Values[key]
	return v, ok, nil
}

type secretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerSource liest ein JSON-Dokument aus AWS Secrets Manager und beantwortet Lookups daraus.
// Das Dokument wird beim ersten Lookup einmalig geladen.
type SecretsManagerSource struct {
	client   secretValueGetter
	secretID string

	once    sync.Once
	payload string
	err     error
}

// NewSecretsManagerSource erstellt eine Quelle für das Secret mit der gegebenen ID.
func NewSecretsManagerSource(ctx context.Context, region, secretID string) (*SecretsManagerSource, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newSecretsManagerSource(secretsmanager.NewFromConfig(awsCfg), secretID), nil
}

func newSecretsManagerSource(client secretValueGetter, secretID string) *SecretsManagerSource {
	return &SecretsManagerSource{client: client, secretID: secretID}
}

func (s *SecretsManagerSource) Name() string { return "secrets-manager" }

func (s *SecretsManagerSource) Lookup(ctx context.Context, key string) (string, bool, error) {
	s.once.Do(func() {
		out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(s.secretID),
		})
		if err != nil {
			s.err = err
			return
		}
		s.payload = aws.ToString(out.SecretString)
		if !gjson.Valid(s.payload) {
			s.err = errors.New("secret is not a JSON document")
		}
	})
	if s.err != nil {
		return "", false, s.err
	}

	res := gjson.Get(s.payload, key)
	if !res.Exists() {
		return "", false, nil
	}
	if res.IsObject() {
		return res.Raw, true, nil
	}
	return res.String(), true, nil
}

// DefaultSources baut die Standardreihenfolge: Secret Store (falls konfiguriert), dann Umgebung.
func DefaultSources(ctx context.Context, cfg *Config, logger *zap.Logger) []SecretSource {
	var sources []SecretSource
	if cfg.SecretsManagerSecretID != "" {
		sm, err := NewSecretsManagerSource(ctx, cfg.AWSRegion, cfg.SecretsManagerSecretID)
		if err != nil {
			logger.Warn("Secret store unavailable, falling back to environment", zap.Error(err))
		} else {
			sources = append(sources, sm)
		}
	}
	return append(sources, EnvSource{})
}
