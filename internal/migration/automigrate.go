package migration

import (
	athletedomain "github.com/stridehq/stride/internal/athlete/domain"
	authdomain "github.com/stridehq/stride/internal/auth/domain"
	registrationdomain "github.com/stridehq/stride/internal/registration/domain"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	transferdomain "github.com/stridehq/stride/internal/transfer/domain"
	"gorm.io/gorm"
)

// AutoMigrate builds the schema from the gorm models. Used for sqlite dev
// installs and tests; postgres installs run the SQL migrations, which also
// carry the partial unique indexes AutoMigrate cannot express.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&authdomain.User{},
		&teamdomain.Team{},
		&teamdomain.UserTeam{},
		&athletedomain.Athlete{},
		&registrationdomain.Registration{},
		&transferdomain.OwnershipTransfer{},
	)
}
