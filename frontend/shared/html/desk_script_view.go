package html

import "fmt"

// Names shared by the CSRF middleware and the desk script.
const (
	CSRFCookie = "X-CSRF-Token"
	CSRFField  = "_csrf"
)

// DeskScript is the small script every desk page carries. It copies the CSRF cookie
// into a hidden field of each POST form, asks before submitting buttons marked
// data-confirm, and wires data-select-all checkboxes to the row checkboxes of their
// table.
func DeskScript() string {
	return fmt.Sprintf(`<script>
(function () {
  var cookieName = %q, fieldName = %q;

  function cookie(name) {
    var parts = document.cookie ? document.cookie.split(";") : [];
    for (var i = 0; i < parts.length; i++) {
      var c = parts[i].trim();
      if (c.indexOf(name + "=") === 0) return decodeURIComponent(c.substring(name.length + 1));
    }
    return "";
  }

  function addToken(form, token) {
    if ((form.getAttribute("method") || "GET").toUpperCase() !== "POST") return;
    if (form.querySelector("input[name='" + fieldName + "']")) return;
    var input = document.createElement("input");
    input.type = "hidden";
    input.name = fieldName;
    input.value = token;
    form.appendChild(input);
  }

  function init() {
    var token = cookie(cookieName);
    document.querySelectorAll("form").forEach(function (form) {
      if (token) addToken(form, token);
    });
    document.addEventListener("click", function (ev) {
      var btn = ev.target.closest("button[data-confirm]");
      if (btn && !window.confirm(btn.getAttribute("data-confirm"))) ev.preventDefault();
    });
    document.querySelectorAll("input[data-select-all]").forEach(function (all) {
      all.addEventListener("change", function () {
        var table = all.closest("table");
        table.querySelectorAll("tbody input[type=checkbox]").forEach(function (box) {
          box.checked = all.checked;
        });
      });
    });
  }

  if (document.readyState === "loading") {
    document.addEventListener("DOMContentLoaded", init);
  } else {
    init();
  }
})();
</script>`, CSRFCookie, CSRFField)
}
