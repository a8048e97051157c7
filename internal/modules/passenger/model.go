// README: Passenger identity, gender and grid placement.
package passenger

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"ridesim/internal/types"
)

type Gender string

const (
	Male   Gender = "MALE"
	Female Gender = "FEMALE"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	return g == Male || g == Female
}

// Destinations is the fixed set of drop-off labels.
var Destinations = []string{"Downtown", "Airport", "Suburb A", "Shopping Mall"}

var (
	maleNames   = []string{"Ali", "Ahmed", "Bilal", "Usman", "Hamza", "Hassan", "Umer", "Zain", "Saad", "Fahad"}
	femaleNames = []string{"Ayesha", "Fatima", "Zainab", "Maryam", "Sana", "Hina", "Sidra", "Amna", "Mahnoor", "Zara"}
)

// RandomOrigin picks a pickup point on the passenger grid.
func RandomOrigin() types.Point {
	return types.Point{
		X: float64(250 + rand.IntN(6)*100),
		Y: float64(150 + rand.IntN(4)*100),
	}
}

func newID() types.ID {
	return types.ID("P-" + strings.ToUpper(uuid.NewString()[:8]))
}

func randomName(g Gender) string {
	if g == Male {
		return maleNames[rand.IntN(len(maleNames))]
	}
	return femaleNames[rand.IntN(len(femaleNames))]
}

func randomAvatar(g Gender) string {
	folder := "women"
	if g == Male {
		folder = "men"
	}
	return fmt.Sprintf("https://randomuser.me/api/portraits/%s/%d.jpg", folder, rand.IntN(99)+1)
}
