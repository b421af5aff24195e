package auth

import "time"

type Config struct {
	SupabaseURL    string        `env:"SUPABASE_URL"`
	ServiceRoleKey string        `env:"SUPABASE_SERVICE_ROLE_KEY"`
	JWTSecret      string        `env:"SUPABASE_JWT_SECRET"`
	JWTAudience    string        `env:"SUPABASE_JWT_AUDIENCE" envDefault:"authenticated"`
	RequestTimeout time.Duration `env:"SUPABASE_AUTH_TIMEOUT" envDefault:"5s"`
}
