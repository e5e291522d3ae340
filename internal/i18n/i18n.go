// Package i18n translates API messages using the caller's Accept-Language.
// English is the fallback; messages are keyed by their English text.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var supported = []language.Tag{language.English, language.Vietnamese}

var (
	builder = catalog.NewBuilder(catalog.Fallback(language.English))
	matcher = language.NewMatcher(supported)
)

var vietnamese = map[string]string{
	"unauthorized":                                   "chưa xác thực",
	"forbidden":                                      "không có quyền thực hiện thao tác này",
	"internal error":                                 "lỗi hệ thống",
	"invalid request":                                "yêu cầu không hợp lệ",
	"invalid id":                                     "mã không hợp lệ",
	"invalid page":                                   "trang không hợp lệ",
	"invalid scope":                                  "phạm vi không hợp lệ",
	"not found":                                      "không tìm thấy",
	"missing credentials":                            "thiếu thông tin đăng nhập",
	"invalid credentials":                            "email hoặc mật khẩu không đúng",
	"account is inactive":                            "tài khoản đã bị vô hiệu hóa",
	"failed to create token":                         "không thể tạo mã truy cập",
	"old password is incorrect":                      "mật khẩu cũ không đúng",
	"new password must be at least 8 characters":     "mật khẩu mới phải có ít nhất 8 ký tự",
	"new password must differ from the old password": "mật khẩu mới phải khác mật khẩu cũ",
	"password changed":                               "đổi mật khẩu thành công",
	"category not found":                             "không tìm thấy loại sàn",
	"category name is required":                      "tên loại sàn là bắt buộc",
	"category name is too long":                      "tên loại sàn quá dài",
	"category name already exists":                   "tên loại sàn đã tồn tại",
	"could not allocate a category id":               "không thể cấp mã loại sàn",
	"category does not exist":                        "loại sàn không tồn tại",
	"image not found":                                "không tìm thấy hình ảnh",
	"image name is required":                         "tên hình ảnh là bắt buộc",
	"image name is too long":                         "tên hình ảnh quá dài",
	"product url already in use":                     "đường dẫn sản phẩm đã được sử dụng",
	"image does not belong to this category":         "hình ảnh không thuộc loại sàn này",
	"no files provided":                              "chưa chọn tệp nào",
	"no file succeeded":                              "không có tệp nào được tải lên thành công",
	"uploaded %d of %d files":                        "đã tải lên %d trên %d tệp",
	"not an image":                                   "tệp không phải là hình ảnh",
	"file is empty":                                  "tệp rỗng",
	"file exceeds size limit":                        "tệp vượt quá dung lượng cho phép",
	"failed to read file":                            "không thể đọc tệp",
	"failed to store file":                           "không thể lưu tệp",
	"failed to generate thumbnail":                   "không thể tạo ảnh thu nhỏ",
	"failed to save image record":                    "không thể lưu thông tin hình ảnh",
	"user not found":                                 "không tìm thấy người dùng",
	"email already registered":                       "email đã được đăng ký",
	"invalid email":                                  "email không hợp lệ",
	"password must be between 8 and 100 characters":  "mật khẩu phải từ 8 đến 100 ký tự",
	"name must be between 1 and 150 characters":      "tên phải từ 1 đến 150 ký tự",
	"invalid date of birth":                          "ngày sinh không hợp lệ",
	"only admins can change role or status":          "chỉ quản trị viên mới được đổi vai trò hoặc trạng thái",
	"user still owns categories or images":           "người dùng vẫn còn sở hữu loại sàn hoặc hình ảnh",
	"password has been reset":                        "đã đặt lại mật khẩu",
	"role not found":                                 "không tìm thấy vai trò",
	"role does not exist":                            "vai trò không tồn tại",
	"role name is required":                          "tên vai trò là bắt buộc",
	"role name already exists":                       "tên vai trò đã tồn tại",
	"role is assigned to users":                      "vai trò đang được gán cho người dùng",
	"the Admin role cannot be renamed or deleted":    "không thể đổi tên hoặc xóa vai trò Admin",
	"search query is required":                       "vui lòng nhập từ khóa tìm kiếm",
}

func init() {
	for key, vi := range vietnamese {
		_ = builder.SetString(language.English, key, key)
		_ = builder.SetString(language.Vietnamese, key, vi)
	}
}

// Printer returns a printer for the best supported match of an
// Accept-Language header value.
func Printer(acceptLanguage string) *message.Printer {
	tags, _, _ := language.ParseAcceptLanguage(acceptLanguage)
	_, index, _ := matcher.Match(tags...)
	return message.NewPrinter(supported[index], message.Catalog(builder))
}

// Translate formats key in the language negotiated from acceptLanguage.
// Unknown keys are formatted as-is.
func Translate(acceptLanguage, key string, args ...any) string {
	return Printer(acceptLanguage).Sprintf(key, args...)
}
