package users

// CurrentUserResponse is the caller's own profile with aggregate counts
// derived concurrently from the recipe, favorite, and follow tables.
type CurrentUserResponse struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	Email                 string  `json:"email"`
	Avatar                *string `json:"avatar"`
	RecipesAmount         int64   `json:"recipes_amount"`
	FavoriteRecipesAmount int64   `json:"favorite_recipes_amount"`
	FollowersAmount       int64   `json:"followers_amount"`
	FollowingsAmount      int64   `json:"followings_amount"`
}

// ProfileResponse is another user's public profile. Email stays private.
type ProfileResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Avatar          *string `json:"avatar"`
	RecipesAmount   int64   `json:"recipes_amount"`
	FollowersAmount int64   `json:"followers_amount"`
	IsFollowing     bool    `json:"is_following"`
}

// FollowerResponse is one entry in a followers or followings listing.
type FollowerResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Avatar        *string `json:"avatar"`
	RecipesAmount int64   `json:"recipes_amount"`
}

// AvatarResponse carries the new public path after an avatar update.
type AvatarResponse struct {
	Avatar string `json:"avatar"`
}

// FollowStatusResponse reports the follow edge state after a mutation.
type FollowStatusResponse struct {
	IsFollowing bool `json:"is_following"`
}
