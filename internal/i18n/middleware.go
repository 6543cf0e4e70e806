package i18n

import "net/http"

// CookieName is the cookie that remembers an explicit language choice.
const CookieName = "lang"

// Middleware negotiates the request language and injects a matching localizer
// into the request context. Precedence: ?lang query, lang cookie,
// Accept-Language header, then defaultLang.
func Middleware(defaultLang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cookie string
			if c, err := r.Cookie(CookieName); err == nil {
				cookie = c.Value
			}
			lang := Match(defaultLang, r.URL.Query().Get("lang"), cookie, r.Header.Get("Accept-Language"))
			ctx := WithLang(r.Context(), lang)
			ctx = WithLocalizer(ctx, NewLocalizer(lang))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
