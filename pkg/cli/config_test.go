package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConfig_RoundTrip(t *testing.T) {
	// Point $HOME at a scratch dir so the real ~/.hios is untouched.
	t.Setenv("HOME", t.TempDir())

	in := &UserConfig{
		CurrentProfile: "staging",
		Profiles: map[string]Profile{
			"staging": {
				Region:      "us-east-2",
				Bucket:      "hios-staging",
				DatastoreID: "ds-staging",
				RoleARN:     "arn:aws:iam::1:role/staging",
			},
			"prod": {
				Region:      "us-east-1",
				Bucket:      "hios-prod",
				DatastoreID: "ds-prod",
				RoleARN:     "arn:aws:iam::1:role/prod",
				KmsKeyID:    "arn:aws:kms::1:key/k",
				Endpoint:    "https://healthlake.us-east-1.amazonaws.com",
			},
		},
	}
	require.NoError(t, SaveUserConfig(in))

	out, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, in.CurrentProfile, out.CurrentProfile)
	assert.Equal(t, in.Profiles, out.Profiles)
}

func TestLoadUserConfig_MissingFileFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := LoadUserConfig()
	require.Error(t, err)
}

func TestActiveProfile(t *testing.T) {
	t.Parallel()

	cfg := &UserConfig{
		CurrentProfile: "dev",
		Profiles: map[string]Profile{
			"dev":  {Bucket: "dev-bucket"},
			"prod": {Bucket: "prod-bucket"},
		},
	}

	assert.Equal(t, "dev-bucket", cfg.ActiveProfile("").Bucket, "current-profile applies without an override")
	assert.Equal(t, "prod-bucket", cfg.ActiveProfile("prod").Bucket, "the override wins")
	assert.Equal(t, Profile{}, cfg.ActiveProfile("missing"), "unknown profiles resolve to an empty profile")
}
