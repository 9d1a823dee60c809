package web

import (
	"crypto/sha256"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	sessionCookie = "clubsite_session"
	sessionMaxAge = 7 * 24 * time.Hour
	maxFlashes    = 5
)

// ErrSessionKey is returned for a session key outside the accepted length.
var ErrSessionKey = errors.New("invalid session key")

// session is the cookie payload: the signed-in identity and pending flashes.
type session struct {
	Identity string   `json:"id,omitempty"`
	Flashes  []string `json:"f,omitempty"`
}

// sessions signs and encrypts the session cookie.
type sessions struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// newSessions derives the signing and encryption keys from key. An empty key
// generates random keys, so sessions do not survive a restart.
func newSessions(key string, secure bool) (*sessions, error) {
	var hashKey, blockKey []byte
	switch {
	case key == "":
		hashKey = securecookie.GenerateRandomKey(64)
		blockKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil || blockKey == nil {
			return nil, ErrSessionKey
		}
	case len(key) < 32:
		return nil, ErrSessionKey
	default:
		sum := sha256.Sum256([]byte("clubsite-block:" + key))
		hashKey = []byte(key)
		blockKey = sum[:]
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(sessionMaxAge.Seconds()))
	return &sessions{codec: codec, secure: secure}, nil
}

// load decodes the session. A missing, expired or tampered cookie yields
// an empty session.
func (s *sessions) load(r *http.Request) session {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return session{}
	}
	var sess session
	if err := s.codec.Decode(sessionCookie, c.Value, &sess); err != nil {
		return session{}
	}
	return sess
}

func (s *sessions) save(w http.ResponseWriter, sess session) error {
	if len(sess.Flashes) > maxFlashes {
		sess.Flashes = sess.Flashes[len(sess.Flashes)-maxFlashes:]
	}
	value, err := s.codec.Encode(sessionCookie, sess)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// identity returns the signed-in identity, or "" for anonymous.
func (s *sessions) identity(r *http.Request) string {
	return s.load(r).Identity
}

// update applies fn to the current session and writes it back once.
func (s *sessions) update(w http.ResponseWriter, r *http.Request, fn func(*session)) error {
	sess := s.load(r)
	fn(&sess)
	return s.save(w, sess)
}

// flash queues a one-shot message for the next rendered page.
func (s *sessions) flash(w http.ResponseWriter, r *http.Request, msg string) error {
	return s.update(w, r, func(sess *session) {
		sess.Flashes = append(sess.Flashes, msg)
	})
}

// popFlashes returns and clears pending messages.
func (s *sessions) popFlashes(w http.ResponseWriter, r *http.Request) []string {
	sess := s.load(r)
	if len(sess.Flashes) == 0 {
		return nil
	}
	flashes := sess.Flashes
	sess.Flashes = nil
	_ = s.save(w, sess)
	return flashes
}
