// Package plugin — реестр пользовательских узлов.
//
// Плагин описывается дескриптором {location_reference, exposed_name}.
// Linker превращает дескриптор в фабрику узла; как код доставляется
// в процесс, решает конкретный Linker. В поставке есть StaticLinker
// для плагинов, скомпилированных в бинарник (см. internal/plugins).
//
// Registry реализует engine.Resolver и подключается к движку как
// engine.Config.Custom. Тип плагина — Config().Type его узла; по
// соглашению он совпадает с Config().Name.
package plugin
