package token

import "crypto/subtle"

type seatState uint8

const (
	seatInvalid seatState = iota
	seatUnclaimed
	seatClaimed
)

// Seat is either Unclaimed(digest) or Claimed(actor). The zero value is neither
// and refuses every claim.
type Seat struct {
	state    seatState
	digest   Digest
	occupant string
}

func Unclaimed(d Digest) Seat { return Seat{state: seatUnclaimed, digest: d} }

func Claimed(actor string) Seat { return Seat{state: seatClaimed, occupant: actor} }

func (s Seat) IsClaimed() bool { return s.state == seatClaimed }

// Occupant returns the claiming actor, if any.
func (s Seat) Occupant() (string, bool) {
	if s.state != seatClaimed {
		return "", false
	}
	return s.occupant, true
}

// Digest returns the stored hash while the seat is still unclaimed.
func (s Seat) Digest() (Digest, bool) {
	if s.state != seatUnclaimed {
		return Digest{}, false
	}
	return s.digest, true
}

// Matches reports whether secret hashes to this seat's digest.
func (s Seat) Matches(secret string) bool {
	if s.state != seatUnclaimed {
		return false
	}
	h := Hash(secret)
	return subtle.ConstantTimeCompare(h[:], s.digest[:]) == 1
}

// Claim burns the digest and seats actor. The receiver is not modified.
func (s Seat) Claim(secret, actor string) (Seat, error) {
	switch s.state {
	case seatClaimed:
		return s, ErrSeatTaken
	case seatUnclaimed:
		if !s.Matches(secret) {
			return s, ErrInvalidToken
		}
		return Claimed(actor), nil
	default:
		return s, ErrInvalidToken
	}
}
