package model

// Recipe はバックエンドが返すレシピを表す。
// JSONタグはバックエンドのDynamoDB属性名に合わせる（Summeryの綴りも含む）。
type Recipe struct {
	ID               string     `json:"Id"`
	Title            string     `json:"Title"`
	Summary          string     `json:"Summery"`
	InstructionsText string     `json:"InstructionsText"`
	SourceURL        string     `json:"SourceUrl"`
	ImageURL         string     `json:"ImageUrl"`
	Publisher        string     `json:"Publisher"`
	CategoryID       FlexString `json:"CategoryId"`
	Cuisine          string     `json:"Couisine,omitempty"`
	CreatedByUserID  string     `json:"CreatedByUserId,omitempty"`
	ReadyInMinutes   FlexString `json:"ReadyInMinutes"`
	Servings         FlexString `json:"Servings"`
	Vegetarian       FlexString `json:"Vegetarian,omitempty"`
	Vegan            FlexString `json:"Vegan,omitempty"`
	GlutenFree       FlexString `json:"GlutenFree,omitempty"`
	AverageRating    *FlexFloat `json:"AverageRating,omitempty"`
	RatingCount      *FlexFloat `json:"RatingCount,omitempty"`
	MyRating         *FlexFloat `json:"MyRating,omitempty"`
}

// RecipePage はカーソルベースページネーションのレシピ一覧1ページ分を表す。
// LastKeyが空の場合は次ページが存在しない。
type RecipePage struct {
	Items   []Recipe `json:"items"`
	LastKey string   `json:"lastKey"`
}

// NewRecipe はレシピ作成リクエストの入力を表す。
type NewRecipe struct {
	Title            string `json:"Title"`
	Summary          string `json:"Summery"`
	InstructionsText string `json:"InstructionsText"`
	ImageURL         string `json:"ImageUrl"`
	SourceURL        string `json:"SourceUrl"`
	CategoryID       string `json:"CategoryId"`
	Cuisine          string `json:"Couisine"`
	ReadyInMinutes   string `json:"ReadyInMinutes"`
	Servings         string `json:"Servings"`
	Vegetarian       string `json:"Vegetarian"`
	Vegan            string `json:"Vegan"`
	GlutenFree       string `json:"GlutenFree"`
	CreatedByUserID  string `json:"CreatedByUserId"`
	Publisher        string `json:"Publisher"`
}

// Category はレシピのカテゴリを表す。参照専用データ。
type Category struct {
	ID       FlexString `json:"Id"`
	Name     string     `json:"Name"`
	ImageURL string     `json:"ImageUrl"`
}

// Review はレシピに対するレビューを表す。
// 1ユーザー1レシピにつき1件であることはサーバー側で保証される。
type Review struct {
	UserID     string `json:"UserId"`
	Username   string `json:"Username"`
	ReviewText string `json:"ReviewText"`
	CreatedAt  string `json:"CreatedAt"`
}

// Rating はレシピの評価情報を表す。
type Rating struct {
	RecipeID      string     `json:"RecipeId"`
	AverageRating FlexFloat  `json:"AverageRating"`
	RatingCount   FlexFloat  `json:"RatingCount"`
	MyRating      *FlexFloat `json:"MyRating,omitempty"`
}

// RatingResult は評価送信の結果を表す。
// Updatedがfalseの場合、レスポンスから新しい平均値を得られなかったことを示す。
type RatingResult struct {
	NewAverage float64
	Updated    bool
}
