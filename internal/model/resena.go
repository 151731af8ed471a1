package model

// Resena は店舗レビューを表す。
type Resena struct {
	ID                    string    `json:"_id"`
	NombreEstablecimiento string    `json:"nombre_establecimiento"`
	Direccion             string    `json:"direccion"`
	Latitud               float64   `json:"latitud"`
	Longitud              float64   `json:"longitud"`
	Valoracion            float64   `json:"valoracion"`
	EmailAutor            string    `json:"email_autor"`
	NombreAutor           string    `json:"nombre_autor"`
	TokenEmision          Timestamp `json:"token_emision"`
	TokenCaducidad        Timestamp `json:"token_caducidad"`
	TokenOAuth            string    `json:"token_oauth"`
	Imagenes              []string  `json:"imagenes"`
	CreatedAt             Timestamp `json:"created_at"`
}

// ResenaCreate はレビュー作成リクエストのボディ。
// 作成者情報とトークン情報はバックエンドがトークンから補完する。
type ResenaCreate struct {
	NombreEstablecimiento string   `json:"nombre_establecimiento" validate:"required,min=1,max=200"`
	Direccion             string   `json:"direccion" validate:"max=300"`
	Latitud               float64  `json:"latitud" validate:"gte=-90,lte=90"`
	Longitud              float64  `json:"longitud" validate:"gte=-180,lte=180"`
	Valoracion            float64  `json:"valoracion" validate:"gte=0,lte=5"`
	Imagenes              []string `json:"imagenes" validate:"dive,required"`
}

// ResenaUpdate はレビュー更新リクエストのボディ。nilのフィールドは変更しない。
type ResenaUpdate struct {
	NombreEstablecimiento *string   `json:"nombre_establecimiento,omitempty" validate:"omitempty,min=1,max=200"`
	Direccion             *string   `json:"direccion,omitempty" validate:"omitempty,max=300"`
	Latitud               *float64  `json:"latitud,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitud              *float64  `json:"longitud,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Valoracion            *float64  `json:"valoracion,omitempty" validate:"omitempty,gte=0,lte=5"`
	Imagenes              *[]string `json:"imagenes,omitempty" validate:"omitempty,dive,required"`
}

// ResenaList はページング付き一覧のレスポンス。
type ResenaList struct {
	Resenas []Resena `json:"resenas"`
	Total   int      `json:"total"`
}

// UploadedImage は画像アップロードのレスポンス。
type UploadedImage struct {
	URL string `json:"url"`
}
